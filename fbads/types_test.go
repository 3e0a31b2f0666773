package fbads

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayUsesCallerCalendarDate(t *testing.T) {
	msk := time.FixedZone("UTC+3", 3*60*60)

	// Just past midnight in an offset zone: yesterday is still the
	// 24th there even though UTC has not reached it yet.
	now := time.Date(2026, 8, 25, 1, 0, 0, 0, msk)
	rng := Day(now.AddDate(0, 0, -1))
	assert.Equal(t, "2026-08-24", rng.Since.Format(time.DateOnly))
	assert.Equal(t, "2026-08-24", rng.Until.Format(time.DateOnly))

	utc := Day(time.Date(2026, 8, 25, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, "2026-08-25", utc.Since.Format(time.DateOnly))
}

func TestWindowSpansCalendarDates(t *testing.T) {
	msk := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2026, 8, 25, 0, 30, 0, 0, msk)

	rng := Window(now.AddDate(0, 0, -7), now.AddDate(0, 0, -1))
	assert.Equal(t, "2026-08-18", rng.Since.Format(time.DateOnly))
	assert.Equal(t, "2026-08-24", rng.Until.Format(time.DateOnly))
}
