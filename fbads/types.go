package fbads

import "time"

// Level identifies the depth of an entity within an ad account.
type Level int

const (
	LevelAccount Level = iota
	LevelCampaign
	LevelAdSet
	LevelAd
)

// String returns the Graph edge-friendly name of the level.
func (l Level) String() string {
	switch l {
	case LevelAccount:
		return "account"
	case LevelCampaign:
		return "campaign"
	case LevelAdSet:
		return "adset"
	case LevelAd:
		return "ad"
	default:
		return "unknown"
	}
}

// ChildEdge returns the Graph API edge listing children of this level.
func (l Level) ChildEdge() string {
	switch l {
	case LevelAccount:
		return "campaigns"
	case LevelCampaign:
		return "adsets"
	case LevelAdSet:
		return "ads"
	default:
		return ""
	}
}

// Status is the delivery status of a campaign, ad set or ad.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusPaused   Status = "PAUSED"
	StatusArchived Status = "ARCHIVED"
	StatusDeleted  Status = "DELETED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusArchived, StatusDeleted:
		return true
	}
	return false
}

// AdAccount is a Facebook ad account visible to the configured token.
type AdAccount struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	// AccountStatus: 1 active, 2 disabled, 3 unsettled, per Graph docs.
	AccountStatus int `json:"account_status"`
}

// Entity is a campaign, ad set or ad.
type Entity struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Status          Status `json:"status"`
	EffectiveStatus string `json:"effective_status"`
	Level           Level  `json:"-"`
}

// EntityDetail carries the fields rendered on the detail screen.
type EntityDetail struct {
	Entity
	DailyBudget    string `json:"daily_budget"`
	LifetimeBudget string `json:"lifetime_budget"`
	CreatedTime    string `json:"created_time"`
	UpdatedTime    string `json:"updated_time"`
	ObjectiveOrOpt string `json:"objective"`
}

// Page is one page of children with opaque cursors for both directions.
type Page struct {
	Entities   []Entity
	NextCursor string
	PrevCursor string
}

// DateRange is an inclusive insights reporting window.
type DateRange struct {
	Since time.Time
	Until time.Time
}

// Day returns the single-day range for the calendar date of t in t's
// location. Truncating to 24h multiples would snap to UTC day
// boundaries instead, which shifts the date for offset timezones.
func Day(t time.Time) DateRange {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return DateRange{Since: day, Until: day}
}

// Window returns an inclusive range spanning the calendar dates of
// since and until.
func Window(since, until time.Time) DateRange {
	return DateRange{Since: Day(since).Since, Until: Day(until).Until}
}

// InsightRow is one row of the insights report for a date window.
type InsightRow struct {
	DateStart   string
	DateStop    string
	Spend       float64
	Impressions int64
	Clicks      int64
	Results     int64
	// Partial marks rows the platform delivered incomplete; aggregation
	// renders the affected metrics as placeholders instead of zeros.
	Partial bool
}
