package nav

import "fmt"

// Level is the screen the operator is currently looking at. List levels
// are ordered by depth; EntityDetail and ConfirmAction are overlays that
// keep the breadcrumb of the underlying list.
type Level int

const (
	AccountList Level = iota
	CampaignList
	AdSetList
	AdList
	EntityDetail
	ConfirmAction
)

// String returns a compact name for logging.
func (l Level) String() string {
	switch l {
	case AccountList:
		return "accounts"
	case CampaignList:
		return "campaigns"
	case AdSetList:
		return "adsets"
	case AdList:
		return "ads"
	case EntityDetail:
		return "detail"
	case ConfirmAction:
		return "confirm"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// IsList reports whether l is one of the four list levels.
func (l Level) IsList() bool {
	return l >= AccountList && l <= AdList
}

// Crumb is one selected ancestor on the path from accounts down.
type Crumb struct {
	ID   string
	Name string
	// ListLevel is the list the entity was selected from.
	ListLevel Level
}

// ActionKind is a status mutation the operator may request.
type ActionKind string

const (
	ActionPause  ActionKind = "pause"
	ActionResume ActionKind = "resume"
)

// PendingAction exists only while the state is ConfirmAction.
type PendingAction struct {
	Kind       ActionKind
	EntityID   string
	EntityName string
}

// State is the complete navigation position of one session. The depth
// invariant holds throughout: len(Crumbs) == int(Level) at list levels,
// and Detail is non-nil exactly at EntityDetail and ConfirmAction.
type State struct {
	Level  Level
	Crumbs []Crumb

	// Cursor is the page cursor the current list was fetched with.
	// NextCursor/PrevCursor are recorded from the last fetch and empty
	// at the corresponding edge of the collection.
	Cursor     string
	NextCursor string
	PrevCursor string

	// Detail identifies the inspected entity at detail/confirm levels.
	Detail *Crumb

	Pending *PendingAction
}

// NewState returns the fresh root position: the account list, page one.
func NewState() State {
	return State{Level: AccountList}
}

// Depth returns the breadcrumb depth of the state. For detail and
// confirm overlays it is the depth of the inspected entity's list.
func (s State) Depth() int {
	if s.Level.IsList() {
		return int(s.Level)
	}
	if s.Detail != nil {
		return int(s.Detail.ListLevel)
	}
	return len(s.Crumbs)
}

// parentID returns the entity whose children the current list shows,
// or "" at the account list.
func (s State) parentID() string {
	if len(s.Crumbs) == 0 {
		return ""
	}
	return s.Crumbs[len(s.Crumbs)-1].ID
}

// clone returns a deep copy so transitions never alias shared slices.
func (s State) clone() State {
	out := s
	out.Crumbs = append([]Crumb(nil), s.Crumbs...)
	if s.Detail != nil {
		d := *s.Detail
		out.Detail = &d
	}
	if s.Pending != nil {
		p := *s.Pending
		out.Pending = &p
	}
	return out
}
