package nav

// EventKind enumerates the operator inputs the machine understands.
type EventKind int

const (
	EvSelectAccount EventKind = iota
	EvSelectCampaign
	EvSelectAdSet
	EvSelectAd
	EvInspectEntity
	EvRequestPause
	EvRequestResume
	EvConfirmAction
	EvCancelAction
	EvBack
	EvHome
	EvNextPage
	EvPrevPage
)

// String returns a compact name for logging.
func (k EventKind) String() string {
	switch k {
	case EvSelectAccount:
		return "select_account"
	case EvSelectCampaign:
		return "select_campaign"
	case EvSelectAdSet:
		return "select_adset"
	case EvSelectAd:
		return "select_ad"
	case EvInspectEntity:
		return "inspect"
	case EvRequestPause:
		return "request_pause"
	case EvRequestResume:
		return "request_resume"
	case EvConfirmAction:
		return "confirm"
	case EvCancelAction:
		return "cancel"
	case EvBack:
		return "back"
	case EvHome:
		return "home"
	case EvNextPage:
		return "next_page"
	case EvPrevPage:
		return "prev_page"
	default:
		return "unknown"
	}
}

// Event is one operator input. EntityID/EntityName accompany selection
// and inspection events; the rest carry no payload.
type Event struct {
	Kind       EventKind
	EntityID   string
	EntityName string
}

// EffectKind enumerates what the driver must do after a transition.
type EffectKind int

const (
	// EffectFetchChildren loads a page of a list. ParentID "" means the
	// account list itself.
	EffectFetchChildren EffectKind = iota
	// EffectFetchDetail loads the detail view of one entity.
	EffectFetchDetail
	// EffectMutateStatus performs the pause/resume write.
	EffectMutateStatus
	// EffectRenderOnly re-renders the current state, optionally with an
	// advisory line. No platform call is made.
	EffectRenderOnly
)

// Effect is the single side effect requested by a transition.
type Effect struct {
	Kind EffectKind

	// FetchChildren
	ParentID    string
	ParentLevel Level
	Cursor      string

	// FetchDetail / MutateStatus
	EntityID string
	Action   ActionKind

	// RenderOnly
	Advisory string
}

func fetchList(s State) Effect {
	parentLevel := AccountList
	if len(s.Crumbs) > 0 {
		parentLevel = s.Crumbs[len(s.Crumbs)-1].ListLevel
	}
	return Effect{
		Kind:        EffectFetchChildren,
		ParentID:    s.parentID(),
		ParentLevel: parentLevel,
		Cursor:      s.Cursor,
	}
}

func renderOnly(advisory string) Effect {
	return Effect{Kind: EffectRenderOnly, Advisory: advisory}
}
