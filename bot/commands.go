package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/marktr/adsbot/adgen"
	"github.com/marktr/adsbot/core/logger"
	"github.com/marktr/adsbot/core/telegram/commands"
	tghelpers "github.com/marktr/adsbot/core/telegram/helpers"
	"github.com/marktr/adsbot/nav"
)

const reportTimeout = 2 * time.Minute

func (a *App) registerCommands() {
	reg := a.registry
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Open the control panel",
	})
	reg.RegisterCommand("/campaigns", commands.Command{
		Handler:     a.handleCampaigns,
		Description: "Browse ad accounts and campaigns",
		Aliases:     []string{"/accounts"},
	})
	reg.RegisterCommand("/report", commands.Command{
		Handler:     a.handleReport,
		Description: "Performance report, optionally for a date",
	})
	reg.RegisterCommand("/weekly", commands.Command{
		Handler:     a.handleWeekly,
		Description: "Weekly performance vs the prior week",
	})
	reg.RegisterCommand("/sync", commands.Command{
		Handler:     a.handleSync,
		Description: "Sync the client list from the workspace",
	})
	reg.RegisterCommand("/generate", commands.Command{
		Handler:     a.handleGenerate,
		Description: "Trigger ad image generation for a client",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     a.handleHelp,
		Description: "List available commands",
	})
	reg.SetTextFallback(a.handleUnknown)
}

func (a *App) handleStart(c tele.Context) error {
	if err := tghelpers.SendText(c, "Med-spa ads control panel. Pick an account below, or try /help."); err != nil {
		return err
	}
	return a.openNavigation(c)
}

func (a *App) handleCampaigns(c tele.Context) error {
	return a.openNavigation(c)
}

func (a *App) openNavigation(c tele.Context) error {
	if c.Chat() == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	return a.driver.Apply(ctx, c.Chat().ID,
		func(nav.State) nav.Event { return nav.Event{Kind: nav.EvHome} },
		func(scr Screen) error {
			return tghelpers.SendMDV2(c, scr.Text, scr.Keyboard)
		})
}

func (a *App) handleReport(c tele.Context) error {
	ctx, cancel := context.WithTimeout(tghelpers.BuildContext(c), reportTimeout)
	defer cancel()

	args := c.Args()
	if len(args) > 0 {
		day, ok := tghelpers.ParseFlexibleDate(args[0])
		if !ok {
			return tghelpers.SendText(c, fmt.Sprintf("Could not read %q as a date, use YYYY-MM-DD.", args[0]))
		}
		if err := a.reports.RunDate(ctx, day); err != nil {
			return tghelpers.SendText(c, "Report failed: "+err.Error())
		}
		return nil
	}
	if err := a.reports.RunDaily(ctx, time.Now()); err != nil {
		return tghelpers.SendText(c, "Report failed: "+err.Error())
	}
	return nil
}

func (a *App) handleWeekly(c tele.Context) error {
	ctx, cancel := context.WithTimeout(tghelpers.BuildContext(c), reportTimeout)
	defer cancel()
	if err := a.reports.RunWeekly(ctx, time.Now()); err != nil {
		return tghelpers.SendText(c, "Report failed: "+err.Error())
	}
	return nil
}

func (a *App) handleSync(c tele.Context) error {
	if a.syncer == nil {
		return tghelpers.SendText(c, "Workspace sync is not configured.")
	}
	ctx, cancel := context.WithTimeout(tghelpers.BuildContext(c), time.Minute)
	defer cancel()

	plan, err := a.syncer.Sync(ctx)
	if err != nil {
		return tghelpers.SendText(c, "Sync failed: "+err.Error())
	}
	if !plan.Dirty() {
		return tghelpers.SendText(c, fmt.Sprintf("Already up to date, %d clients.", plan.Total))
	}
	return tghelpers.SendText(c, "Synced: "+plan.String())
}

func (a *App) handleGenerate(c tele.Context) error {
	if a.gen == nil || a.clients == nil {
		return tghelpers.SendText(c, "Ad generation is not configured.")
	}
	args := c.Args()
	if len(args) == 0 {
		return tghelpers.SendText(c, "Usage: /generate <client-slug> [brief]")
	}
	slug := args[0]
	brief := strings.Join(args[1:], " ")

	lookupCtx, cancel := context.WithTimeout(tghelpers.BuildContext(c), 10*time.Second)
	client, err := a.clients.Get(lookupCtx, slug)
	cancel()
	if err != nil {
		return tghelpers.SendText(c, fmt.Sprintf("Unknown client %q, run /sync and check the slug.", slug))
	}

	if err := tghelpers.SendText(c, "Generating ad image for "+client.Name+"..."); err != nil {
		return err
	}

	// The generation service can take minutes; the handler returns and
	// the outcome arrives as a separate message.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		result, err := a.gen.Run(ctx, adgen.Request{ClientSlug: client.Slug, Brief: brief})
		if err != nil {
			logger.GEN.Warn("generation run failed",
				slog.String("event", "adgen.run"),
				slog.String("client", client.Slug),
				slog.String("err", err.Error()))
			_ = tghelpers.SendText(c, "Generation failed for "+client.Name+": "+err.Error())
			return
		}
		_ = tghelpers.SendText(c, "Ad image ready for "+client.Name+": "+result.ImageURL)
	}()
	return nil
}

func (a *App) handleHelp(c tele.Context) error {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, cmd := range a.registry.ListCommands(true) {
		fmt.Fprintf(&b, "%s - %s\n", cmd.Text, cmd.Description)
	}
	return tghelpers.SendText(c, b.String())
}

func (a *App) handleUnknown(c tele.Context) error {
	return tghelpers.SendText(c, "I did not understand that, try /help.")
}
