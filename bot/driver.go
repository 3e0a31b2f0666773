package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/marktr/adsbot/core/logger"
	"github.com/marktr/adsbot/fbads"
	"github.com/marktr/adsbot/nav"
	"github.com/marktr/adsbot/nav/session"
)

// AdsClient is the slice of the platform client the driver needs.
type AdsClient interface {
	ListAccounts(ctx context.Context) ([]fbads.AdAccount, error)
	ListChildren(ctx context.Context, parentID string, parentLevel fbads.Level, cursor string) (fbads.Page, error)
	GetDetail(ctx context.Context, id string, level fbads.Level) (fbads.EntityDetail, error)
	MutateStatus(ctx context.Context, id string, status fbads.Status) error
}

// Driver owns the event loop between chat input and the navigation
// machine: it applies a transition under the session lock, executes
// the resulting effect against the platform, folds failures back into
// the state, and hands a finished Screen to the presenter.
type Driver struct {
	store *session.Store
	ads   AdsClient
}

func NewDriver(store *session.Store, ads AdsClient) *Driver {
	return &Driver{store: store, ads: ads}
}

// Apply runs one input for chatID. makeEvent sees the locked session
// state so level-dependent inputs (a list row tap) resolve against the
// position the operator is actually at, not the one the button was
// rendered for. present receives the final screen; it is not called
// when the input was a recognized no-op.
func (d *Driver) Apply(ctx context.Context, chatID int64, makeEvent func(nav.State) nav.Event, present func(Screen) error) error {
	return d.store.Do(chatID, func(sess *session.Session) error {
		ev := makeEvent(sess.Nav)
		next, eff := nav.Transition(sess.Nav, ev)

		start := time.Now()
		scr, resolved, err := d.execute(ctx, sess, next, eff, "", 0)
		if err != nil {
			return err
		}
		sess.Nav = resolved

		logger.NAV.Debug("event applied",
			slog.String("event", "nav.step"),
			slog.Int64("session_id", chatID),
			slog.String("input", ev.Kind.String()),
			slog.String("screen", resolved.Level.String()),
			slog.Duration("duration", logger.RoundMS(time.Since(start))))

		if scr.Text == "" {
			return nil
		}
		return present(scr)
	})
}

// maxFoldDepth bounds failure folding so a platform outage cannot
// recurse through refresh attempts.
const maxFoldDepth = 1

func (d *Driver) execute(ctx context.Context, sess *session.Session, s nav.State, eff nav.Effect, advisory string, depth int) (Screen, nav.State, error) {
	if eff.Advisory != "" {
		advisory = eff.Advisory
	}

	switch eff.Kind {
	case nav.EffectRenderOnly:
		if advisory == "" && s.Level.IsList() {
			// Pagination edge taps and similar: nothing changed, nothing
			// to say, keep the current message as is.
			return Screen{}, s, nil
		}
		if s.Level == nav.ConfirmAction {
			return ConfirmScreen(s, advisory), s, nil
		}
		if s.Level == nav.EntityDetail && s.Detail != nil &&
			sess.Detail != nil && sess.Detail.ID == s.Detail.ID {
			// Dismissing an overlay lands back on a detail screen that
			// was already fetched; reuse it instead of hitting the
			// platform again.
			return DetailScreen(s, *sess.Detail, advisory), s, nil
		}
		return d.execute(ctx, sess, s, nav.RefreshEffect(s), advisory, depth)

	case nav.EffectFetchChildren:
		if eff.ParentID == "" {
			accounts, err := d.ads.ListAccounts(ctx)
			if err != nil {
				return d.foldFailure(ctx, sess, s, err, depth)
			}
			return AccountsScreen(s, accounts, advisory), s, nil
		}
		page, err := d.ads.ListChildren(ctx, eff.ParentID, fbads.Level(int(eff.ParentLevel)), eff.Cursor)
		if err != nil {
			return d.foldFailure(ctx, sess, s, err, depth)
		}
		s.NextCursor = page.NextCursor
		s.PrevCursor = page.PrevCursor
		return ListScreen(s, page, advisory), s, nil

	case nav.EffectFetchDetail:
		detail, err := d.ads.GetDetail(ctx, eff.EntityID, detailLevel(s))
		if err != nil {
			return d.foldFailure(ctx, sess, s, err, depth)
		}
		sess.Detail = &detail
		return DetailScreen(s, detail, advisory), s, nil

	case nav.EffectMutateStatus:
		status := fbads.StatusPaused
		note := "Paused."
		if eff.Action == nav.ActionResume {
			status = fbads.StatusActive
			note = "Resumed."
		}
		if err := d.ads.MutateStatus(ctx, eff.EntityID, status); err != nil {
			return d.foldFailure(ctx, sess, s, err, depth)
		}
		next, followUp := nav.ResolveSuccess(s)
		return d.execute(ctx, sess, next, followUp, note, depth+1)

	default:
		return Screen{}, s, nil
	}
}

func (d *Driver) foldFailure(ctx context.Context, sess *session.Session, s nav.State, err error, depth int) (Screen, nav.State, error) {
	next, advisory := nav.ResolveFailure(s, err)

	logger.NAV.Warn("effect failed",
		slog.String("event", "nav.effect"),
		slog.String("screen", s.Level.String()),
		slog.String("err", err.Error()))

	if depth >= maxFoldDepth {
		return FallbackScreen(advisory), next, nil
	}
	if next.Level == nav.ConfirmAction {
		return ConfirmScreen(next, advisory), next, nil
	}
	return d.execute(ctx, sess, next, nav.RefreshEffect(next), advisory, depth+1)
}

func detailLevel(s nav.State) fbads.Level {
	if s.Detail == nil {
		return fbads.LevelCampaign
	}
	return fbads.Level(int(s.Detail.ListLevel))
}

// selectEventFor maps a list row tap to the selection event of the
// level the session is currently on.
func selectEventFor(level nav.Level) nav.EventKind {
	switch level {
	case nav.AccountList:
		return nav.EvSelectAccount
	case nav.CampaignList:
		return nav.EvSelectCampaign
	case nav.AdSetList:
		return nav.EvSelectAdSet
	default:
		return nav.EvSelectAd
	}
}
