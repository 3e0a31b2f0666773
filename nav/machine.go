package nav

import (
	"errors"

	"github.com/marktr/adsbot/fbads"
)

// Advisory lines surfaced when an input cannot be honored at the
// current position. The driver appends them to the re-rendered screen.
const (
	adviseUnknown   = "That button does not apply here anymore."
	adviseAtRoot    = "Already at the account list."
	adviseEdgePage  = ""
	adviseRateLimit = "The platform is throttling requests, please retry in a minute."
	adviseDown      = "The ad platform is unavailable right now, nothing was changed."
	adviseForbidden = "The platform rejected the action, the entity was left as is."
	adviseGone      = "That entity no longer exists, returning to the account list."
	adviseFailed    = "The action failed, the entity was left as is."
)

// Transition applies one operator input to a navigation state and
// returns the successor state plus the single effect the driver must
// execute. It is pure and never panics: inputs that make no sense at
// the current level come back as RenderOnly with an advisory.
func Transition(s State, ev Event) (State, Effect) {
	next := s.clone()

	switch ev.Kind {
	case EvSelectAccount, EvSelectCampaign, EvSelectAdSet:
		wantLevel := map[EventKind]Level{
			EvSelectAccount:  AccountList,
			EvSelectCampaign: CampaignList,
			EvSelectAdSet:    AdSetList,
		}[ev.Kind]
		if s.Level != wantLevel {
			return s, renderOnly(adviseUnknown)
		}
		next.Crumbs = append(next.Crumbs, Crumb{ID: ev.EntityID, Name: ev.EntityName, ListLevel: s.Level})
		next.Level = s.Level + 1
		next.Cursor, next.NextCursor, next.PrevCursor = "", "", ""
		return next, fetchList(next)

	case EvSelectAd:
		if s.Level != AdList {
			return s, renderOnly(adviseUnknown)
		}
		return inspect(next, ev, AdList)

	case EvInspectEntity:
		if !s.Level.IsList() || s.Level == AccountList {
			return s, renderOnly(adviseUnknown)
		}
		return inspect(next, ev, s.Level)

	case EvRequestPause, EvRequestResume:
		if s.Level != EntityDetail || s.Detail == nil {
			return s, renderOnly(adviseUnknown)
		}
		kind := ActionPause
		if ev.Kind == EvRequestResume {
			kind = ActionResume
		}
		next.Level = ConfirmAction
		next.Pending = &PendingAction{Kind: kind, EntityID: s.Detail.ID, EntityName: s.Detail.Name}
		return next, renderOnly("")

	case EvConfirmAction:
		if s.Level != ConfirmAction || s.Pending == nil {
			return s, renderOnly(adviseUnknown)
		}
		return next, Effect{
			Kind:     EffectMutateStatus,
			EntityID: s.Pending.EntityID,
			Action:   s.Pending.Kind,
		}

	case EvCancelAction:
		if s.Level != ConfirmAction || s.Detail == nil {
			return s, renderOnly(adviseUnknown)
		}
		// Cancelling is local: the overlay collapses onto the detail
		// screen that was already shown, no platform call is made.
		next.Level = EntityDetail
		next.Pending = nil
		return next, renderOnly("")

	case EvBack:
		return back(next)

	case EvHome:
		next = NewState()
		return next, fetchList(next)

	case EvNextPage:
		if !s.Level.IsList() {
			return s, renderOnly(adviseUnknown)
		}
		if s.NextCursor == "" {
			return s, renderOnly(adviseEdgePage)
		}
		next.Cursor = s.NextCursor
		next.NextCursor, next.PrevCursor = "", ""
		return next, fetchList(next)

	case EvPrevPage:
		if !s.Level.IsList() {
			return s, renderOnly(adviseUnknown)
		}
		if s.PrevCursor == "" {
			return s, renderOnly(adviseEdgePage)
		}
		next.Cursor = s.PrevCursor
		next.NextCursor, next.PrevCursor = "", ""
		return next, fetchList(next)

	default:
		return s, renderOnly(adviseUnknown)
	}
}

func inspect(next State, ev Event, from Level) (State, Effect) {
	next.Level = EntityDetail
	next.Detail = &Crumb{ID: ev.EntityID, Name: ev.EntityName, ListLevel: from}
	return next, Effect{Kind: EffectFetchDetail, EntityID: ev.EntityID}
}

func back(next State) (State, Effect) {
	switch {
	case (next.Level == ConfirmAction || next.Level == EntityDetail) && next.Detail == nil:
		home := NewState()
		return home, fetchList(home)
	case next.Level == ConfirmAction:
		next.Level = EntityDetail
		next.Pending = nil
		return next, renderOnly("")
	case next.Level == EntityDetail:
		// Return to the list the entity was inspected from. The cursor
		// of that list is still in the state, so the same page reloads.
		next.Level = next.Detail.ListLevel
		next.Detail = nil
		return next, fetchList(next)
	case next.Level == AccountList:
		return next, renderOnly(adviseAtRoot)
	default:
		next.Crumbs = next.Crumbs[:len(next.Crumbs)-1]
		next.Level--
		next.Cursor, next.NextCursor, next.PrevCursor = "", "", ""
		return next, fetchList(next)
	}
}

// RefreshEffect returns the effect that reloads the data behind the
// current screen, for re-renders that need fresh platform data.
func RefreshEffect(s State) Effect {
	switch {
	case s.Level == ConfirmAction:
		return renderOnly("")
	case s.Level == EntityDetail && s.Detail != nil:
		return Effect{Kind: EffectFetchDetail, EntityID: s.Detail.ID}
	default:
		return fetchList(s)
	}
}

// ResolveSuccess is applied after a MutateStatus effect succeeds. The
// confirmation overlay collapses back to the detail screen and a fresh
// detail fetch picks up the new status.
func ResolveSuccess(s State) (State, Effect) {
	next := s.clone()
	next.Pending = nil
	if next.Level == ConfirmAction {
		next.Level = EntityDetail
	}
	if next.Detail == nil {
		home := NewState()
		return home, fetchList(home)
	}
	return next, Effect{Kind: EffectFetchDetail, EntityID: next.Detail.ID}
}

// ResolveFailure reconciles the state after an effect fails. Transient
// failures during confirmation keep the overlay so the operator can
// retry; permission and conflict failures drop back to the detail
// screen with the pending action discarded; a vanished entity resets
// to the account list. The returned advisory is rendered verbatim.
func ResolveFailure(s State, err error) (State, string) {
	next := s.clone()

	if errors.Is(err, fbads.ErrNotFound) {
		return NewState(), adviseGone
	}

	if s.Level == ConfirmAction {
		switch {
		case errors.Is(err, fbads.ErrRateLimited):
			return next, adviseRateLimit
		case errors.Is(err, fbads.ErrPlatformUnavailable):
			return next, adviseDown
		default:
			next.Level = EntityDetail
			next.Pending = nil
			if errors.Is(err, fbads.ErrForbidden) || errors.Is(err, fbads.ErrConflict) {
				return next, adviseForbidden
			}
			return next, adviseFailed
		}
	}

	switch {
	case errors.Is(err, fbads.ErrRateLimited):
		return next, adviseRateLimit
	default:
		return next, adviseDown
	}
}
