package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/marktr/adsbot/core/logger"
	"github.com/marktr/adsbot/fbads"
)

// Insighter is the slice of the ads client the reporter needs.
type Insighter interface {
	ListAccounts(ctx context.Context) ([]fbads.AdAccount, error)
	GetInsights(ctx context.Context, accountID string, rng fbads.DateRange) ([]fbads.InsightRow, error)
}

// Publisher delivers a finished report to the operator chat.
type Publisher interface {
	Publish(ctx context.Context, text string) error
}

// AccountSummary pairs one ad account with its aggregated window.
type AccountSummary struct {
	Account fbads.AdAccount
	Summary Summary
	// Err is set when the account's insights could not be fetched; the
	// renderer shows the account with dashes instead of dropping it.
	Err error
}

// Renderer turns a finished window into the text that gets published.
type Renderer func(title string, rng fbads.DateRange, accounts []AccountSummary) string

// Options configures the report service.
type Options struct {
	Enabled  bool
	DailyAt  string // "HH:MM" in Timezone
	Timezone string

	Insights  Insighter
	Publisher Publisher
	// Render defaults to the plain-text renderer.
	Render Renderer
}

// Service owns the daily schedule and the on-demand report runs. The
// job body is RunDaily so tests and the /report command drive the same
// code path as the schedule.
type Service struct {
	opts  Options
	loc   *time.Location
	sched *gocron.Scheduler
}

func NewService(opts Options) (*Service, error) {
	if opts.Insights == nil || opts.Publisher == nil {
		return nil, fmt.Errorf("report: insights and publisher are required")
	}
	if opts.DailyAt == "" {
		opts.DailyAt = "09:00"
	}
	if opts.Render == nil {
		opts.Render = RenderPlain
	}
	loc := time.UTC
	if opts.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(opts.Timezone)
		if err != nil {
			return nil, fmt.Errorf("report: bad timezone %q: %w", opts.Timezone, err)
		}
	}
	return &Service{
		opts:  opts,
		loc:   loc,
		sched: gocron.NewScheduler(loc),
	}, nil
}

// Start registers the daily job and runs the scheduler until ctx is
// canceled. Disabled service starts nothing and returns nil.
func (s *Service) Start(ctx context.Context) error {
	if !s.opts.Enabled {
		logger.REPORT.Info("daily report disabled",
			slog.String("event", "report.schedule"))
		return nil
	}

	_, err := s.sched.Every(1).Day().At(s.opts.DailyAt).Do(func() {
		runCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.RunDaily(runCtx, time.Now().In(s.loc)); err != nil {
			logger.REPORT.Error("scheduled report failed",
				slog.String("event", "report.daily"),
				slog.String("err", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("report: scheduling daily job: %w", err)
	}

	logger.REPORT.Info("daily report scheduled",
		slog.String("event", "report.schedule"),
		slog.String("at", s.opts.DailyAt),
		slog.String("tz", s.loc.String()))

	s.sched.StartAsync()
	go func() {
		<-ctx.Done()
		s.sched.Stop()
	}()
	return nil
}

// RunDaily builds and publishes yesterday's report relative to now,
// with the day before as the delta baseline. now is converted to the
// service timezone first, so "yesterday" means the operator's calendar
// day regardless of what clock the caller passed in.
func (s *Service) RunDaily(ctx context.Context, now time.Time) error {
	now = now.In(s.loc)
	rng := fbads.Day(now.AddDate(0, 0, -1))
	prior := fbads.Day(now.AddDate(0, 0, -2))
	return s.run(ctx, "report.daily", "Daily report", rng, &prior)
}

// RunWeekly builds and publishes the report for the last seven full
// days against the seven days before them.
func (s *Service) RunWeekly(ctx context.Context, now time.Time) error {
	now = now.In(s.loc)
	rng := fbads.Window(now.AddDate(0, 0, -7), now.AddDate(0, 0, -1))
	prior := fbads.Window(now.AddDate(0, 0, -14), now.AddDate(0, 0, -8))
	return s.run(ctx, "report.weekly", "Weekly report", rng, &prior)
}

// RunDate builds and publishes the report for one specific day, without
// a delta baseline. Backs the /report <date> command.
func (s *Service) RunDate(ctx context.Context, day time.Time) error {
	return s.run(ctx, "report.date", "Report", fbads.Day(day), nil)
}

func (s *Service) run(ctx context.Context, event, title string, rng fbads.DateRange, prior *fbads.DateRange) error {
	started := time.Now()

	accounts, err := s.Build(ctx, rng, prior)
	if err != nil {
		return err
	}

	text := s.opts.Render(title, rng, accounts)
	if err := s.opts.Publisher.Publish(ctx, text); err != nil {
		return fmt.Errorf("report: publishing: %w", err)
	}

	logger.REPORT.Info("report published",
		slog.String("event", event),
		slog.Int("accounts", len(accounts)),
		slog.String("since", rng.Since.Format(time.DateOnly)),
		slog.String("until", rng.Until.Format(time.DateOnly)),
		slog.Duration("duration", logger.RoundMS(time.Since(started))))
	return nil
}

// Build fetches and aggregates the window for every visible account.
// A failed account is kept in the result with Err set so the report
// shows the gap instead of silently omitting the account.
func (s *Service) Build(ctx context.Context, rng fbads.DateRange, prior *fbads.DateRange) ([]AccountSummary, error) {
	accounts, err := s.opts.Insights.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: listing accounts: %w", err)
	}

	out := make([]AccountSummary, 0, len(accounts))
	for _, acc := range accounts {
		rows, err := s.opts.Insights.GetInsights(ctx, acc.ID, rng)
		if err != nil {
			logger.REPORT.Warn("account insights failed",
				slog.String("event", "report.fetch"),
				slog.String("account", acc.ID),
				slog.String("err", err.Error()))
			out = append(out, AccountSummary{Account: acc, Err: err})
			continue
		}
		var priorRows []fbads.InsightRow
		if prior != nil {
			priorRows, err = s.opts.Insights.GetInsights(ctx, acc.ID, *prior)
			if err != nil {
				// The window itself is fine, only the baseline is gone.
				priorRows = nil
			} else if priorRows == nil {
				priorRows = []fbads.InsightRow{}
			}
		}
		out = append(out, AccountSummary{Account: acc, Summary: Aggregate(rows, priorRows)})
	}
	return out, nil
}

// RenderPlain is the default text renderer, one block per account.
func RenderPlain(title string, rng fbads.DateRange, accounts []AccountSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", title, rng.Since.Format(time.DateOnly))
	if !rng.Until.Equal(rng.Since) {
		fmt.Fprintf(&b, " – %s", rng.Until.Format(time.DateOnly))
	}
	b.WriteString("\n")

	if len(accounts) == 0 {
		b.WriteString("No ad accounts visible.\n")
		return b.String()
	}

	for _, a := range accounts {
		fmt.Fprintf(&b, "\n%s\n", a.Account.Name)
		if a.Err != nil {
			fmt.Fprintf(&b, "  data unavailable (%s)\n", Dash)
			continue
		}
		s := a.Summary
		ok := !s.Partial
		cpr, cprOK := s.CostPerResult()
		fmt.Fprintf(&b, "  Spend: %s\n", FormatMoney(s.Spend, ok))
		fmt.Fprintf(&b, "  Impressions: %s  Clicks: %s\n",
			FormatCount(s.Impressions, ok), FormatCount(s.Clicks, ok))
		fmt.Fprintf(&b, "  Leads: %s  Cost/lead: %s\n",
			FormatCount(s.Results, ok), FormatMoney(cpr, cprOK))
		if s.HasPrior {
			spendPct, spendOK := DeltaPct(s.Spend, s.PriorSpend)
			resultsPct, resultsOK := DeltaPct(float64(s.Results), float64(s.PriorResults))
			fmt.Fprintf(&b, "  vs prior: spend %s, leads %s\n",
				FormatPct(spendPct, spendOK && ok),
				FormatPct(resultsPct, resultsOK && ok))
		}
	}
	return b.String()
}
