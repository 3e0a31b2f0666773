package bot

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/marktr/adsbot/adgen"
	coreconfig "github.com/marktr/adsbot/core/config"
	"github.com/marktr/adsbot/core/database"
	coretelegram "github.com/marktr/adsbot/core/telegram"
	"github.com/marktr/adsbot/core/telegram/router"
	"github.com/marktr/adsbot/fbads"
	"github.com/marktr/adsbot/nav/session"
	"github.com/marktr/adsbot/report"
	"github.com/marktr/adsbot/workspace"
)

// App wires the control panel together: the Graph client, the session
// store with its driver, the report scheduler, the workspace cache and
// the generation trigger.
type App struct {
	cfg *coreconfig.Config

	ads      *fbads.Client
	sessions *session.Store
	driver   *Driver
	registry *coretelegram.Registry

	reports   *report.Service
	publisher *chatPublisher

	db      *sqlx.DB
	clients *workspace.Store
	syncer  *workspace.Syncer

	gen adgen.Runner
}

// NewApp builds the application from configuration. The database and
// workspace/adgen integrations are optional: leaving their config
// sections empty disables the matching commands.
func NewApp(cfg *coreconfig.Config) (*App, error) {
	app := &App{cfg: cfg}

	app.ads = fbads.New(fbads.Options{
		BaseURL:     cfg.Meta.BaseURL,
		APIVersion:  cfg.Meta.APIVersion,
		AccessToken: cfg.Meta.AccessToken,
		PageSize:    cfg.Meta.PageSize,
		Timeout:     time.Duration(cfg.Meta.TimeoutSeconds) * time.Second,
		MaxRetries:  cfg.Meta.MaxRetries,
		BackoffBase: time.Duration(cfg.Meta.BackoffBaseMS) * time.Millisecond,
		BackoffCap:  time.Duration(cfg.Meta.BackoffCapMS) * time.Millisecond,
	})

	app.sessions = session.NewStore(session.Options{
		IdleTTL: time.Duration(cfg.Session.IdleTTLMinutes) * time.Minute,
	})
	app.driver = NewDriver(app.sessions, app.ads)

	if cfg.Database.Host != "" {
		dbCfg := database.Config{
			Host:           cfg.Database.Host,
			Port:           cfg.Database.Port,
			User:           cfg.Database.User,
			Password:       cfg.Database.Password,
			Name:           cfg.Database.Name,
			SSLMode:        cfg.Database.SSLMode,
			MaxConnections: cfg.Database.MaxConnections,
		}
		if err := database.RunMigrations(dbCfg); err != nil {
			return nil, fmt.Errorf("bot: migrations: %w", err)
		}
		db, err := database.Connect(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("bot: database: %w", err)
		}
		app.db = db
		app.clients = workspace.NewStore(db)

		if cfg.Workspace.BaseURL != "" {
			source := workspace.NewHTTPSource(workspace.SourceOptions{
				BaseURL:    cfg.Workspace.BaseURL,
				Token:      cfg.Workspace.Token,
				DatabaseID: cfg.Workspace.DatabaseID,
				Timeout:    time.Duration(cfg.Workspace.TimeoutSeconds) * time.Second,
			})
			app.syncer = workspace.NewSyncer(source, app.clients)
		}
	}

	if cfg.AdGen.BaseURL != "" {
		app.gen = adgen.NewHTTPRunner(adgen.Options{
			BaseURL: cfg.AdGen.BaseURL,
			Token:   cfg.AdGen.Token,
			HTTPClient: &http.Client{
				Timeout: time.Duration(cfg.AdGen.TimeoutSeconds) * time.Second,
			},
		})
	}

	app.publisher = &chatPublisher{chatID: cfg.Report.ChatID}
	if app.publisher.chatID == 0 {
		app.publisher.chatID = cfg.Telegram.AdminID
	}
	reports, err := report.NewService(report.Options{
		Enabled:   cfg.Report.Enabled,
		DailyAt:   cfg.Report.DailyAt,
		Timezone:  cfg.Report.Timezone,
		Insights:  app.ads,
		Publisher: app.publisher,
	})
	if err != nil {
		return nil, err
	}
	app.reports = reports

	app.registry = coretelegram.NewRegistry()
	app.registerCommands()
	if err := registerNavCallbacks(app.registry, app.driver); err != nil {
		return nil, err
	}
	return app, nil
}

// CoreConfig implements cmd.ConfigCarrier.
func (a *App) CoreConfig() *coreconfig.Config {
	return a.cfg
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes,
		router.CallbackRoute(a.registry, router.CallbackOptions{}),
		router.TextRoute(a.registry, router.TextOptions{}),
	)

	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    a.registry,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.publisher.bot.Store(rt.Bot)
			go a.sessions.Sweep(ctx, time.Duration(a.cfg.Session.SweepIntervalSeconds)*time.Second)
			return a.reports.Start(ctx)
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			if a.db != nil {
				return a.db.Close()
			}
			return nil
		},
	}, nil
}

// chatPublisher delivers report texts to the operator chat. The bot
// handle appears only once the runtime is up.
type chatPublisher struct {
	bot    atomic.Pointer[tele.Bot]
	chatID int64
}

func (p *chatPublisher) Publish(ctx context.Context, text string) error {
	bot := p.bot.Load()
	if bot == nil {
		return fmt.Errorf("bot: publisher used before startup")
	}
	if p.chatID == 0 {
		return fmt.Errorf("bot: no report chat configured")
	}
	_, err := bot.Send(&tele.Chat{ID: p.chatID}, text)
	return err
}

