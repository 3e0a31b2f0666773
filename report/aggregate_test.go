package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marktr/adsbot/fbads"
)

func row(spend float64, impressions, clicks, results int64) fbads.InsightRow {
	return fbads.InsightRow{
		Spend:       spend,
		Impressions: impressions,
		Clicks:      clicks,
		Results:     results,
	}
}

func TestAggregateSumsWindow(t *testing.T) {
	s := Aggregate([]fbads.InsightRow{
		row(60, 1200, 90, 6),
		row(40, 800, 60, 4),
	}, nil)

	assert.Equal(t, 100.0, s.Spend)
	assert.Equal(t, int64(2000), s.Impressions)
	assert.Equal(t, int64(150), s.Clicks)
	assert.Equal(t, int64(10), s.Results)
	assert.False(t, s.HasPrior)

	cpr, ok := s.CostPerResult()
	require.True(t, ok)
	assert.Equal(t, 10.0, cpr)
}

func TestCostPerResultGuardsZeroResults(t *testing.T) {
	s := Aggregate([]fbads.InsightRow{row(50, 1000, 40, 0)}, nil)
	_, ok := s.CostPerResult()
	assert.False(t, ok)
	assert.Equal(t, Dash, FormatMoney(0, ok), "no results renders a dash, never a fake number")
}

func TestDeltasAgainstPriorWindow(t *testing.T) {
	s := Aggregate(
		[]fbads.InsightRow{row(100, 2000, 150, 10)},
		[]fbads.InsightRow{row(50, 1000, 50, 5)},
	)
	require.True(t, s.HasPrior)

	pct, ok := DeltaPct(s.Spend, s.PriorSpend)
	require.True(t, ok)
	assert.InDelta(t, 100.0, pct, 0.001)
	assert.Equal(t, "+100.0%", FormatPct(pct, ok))

	cur, _ := s.CostPerResult()
	prior, priorOK := s.PriorCostPerResult()
	require.True(t, priorOK)
	pct, ok = DeltaPct(cur, prior)
	require.True(t, ok)
	assert.InDelta(t, 0.0, pct, 0.001, "cost per result held steady")
}

func TestDeltaUndefinedForZeroPrior(t *testing.T) {
	s := Aggregate(
		[]fbads.InsightRow{row(100, 2000, 150, 10)},
		[]fbads.InsightRow{},
	)
	require.True(t, s.HasPrior, "an empty prior window still counts as present")

	_, ok := DeltaPct(s.Spend, s.PriorSpend)
	assert.False(t, ok)
	assert.Equal(t, Dash, FormatPct(0, ok))
}

func TestPartialRowsDegradeToDash(t *testing.T) {
	s := Aggregate([]fbads.InsightRow{
		row(60, 1200, 90, 6),
		{Impressions: 500, Clicks: 20, Partial: true},
	}, nil)

	assert.True(t, s.Partial)
	_, ok := s.CostPerResult()
	assert.False(t, ok, "partial data never produces a confident cost per result")
	assert.Equal(t, Dash, FormatMoney(0, ok))
	assert.Equal(t, Dash, FormatCount(s.Results, !s.Partial))
}

func TestEmptyWindow(t *testing.T) {
	s := Aggregate(nil, nil)
	assert.Zero(t, s.Spend)
	_, ok := s.CostPerResult()
	assert.False(t, ok)
}
