package report

import (
	"fmt"

	"github.com/marktr/adsbot/fbads"
)

// Dash is rendered wherever a metric cannot be stated honestly,
// instead of a misleading zero.
const Dash = "—"

// Summary is the aggregate of one reporting window, optionally paired
// with the prior window for delta rendering. It is plain data; all
// derivation methods are deterministic.
type Summary struct {
	Spend       float64
	Impressions int64
	Clicks      int64
	Results     int64
	// Partial is set when any contributing row was incomplete. Degraded
	// summaries render Dash rather than underreported numbers.
	Partial bool

	HasPrior         bool
	PriorSpend       float64
	PriorImpressions int64
	PriorClicks      int64
	PriorResults     int64
	PriorPartial     bool
}

// Aggregate folds daily insight rows into a Summary. priorRows may be
// nil; when present the summary carries the prior window totals so the
// renderer can show deltas.
func Aggregate(rows, priorRows []fbads.InsightRow) Summary {
	var s Summary
	s.Spend, s.Impressions, s.Clicks, s.Results, s.Partial = sum(rows)
	if priorRows != nil {
		s.HasPrior = true
		s.PriorSpend, s.PriorImpressions, s.PriorClicks, s.PriorResults, s.PriorPartial = sum(priorRows)
	}
	return s
}

func sum(rows []fbads.InsightRow) (spend float64, impressions, clicks, results int64, partial bool) {
	for _, r := range rows {
		spend += r.Spend
		impressions += r.Impressions
		clicks += r.Clicks
		results += r.Results
		partial = partial || r.Partial
	}
	return
}

// CostPerResult returns spend divided by results. ok is false when the
// window produced no results or the data is degraded.
func (s Summary) CostPerResult() (float64, bool) {
	if s.Partial || s.Results == 0 {
		return 0, false
	}
	return s.Spend / float64(s.Results), true
}

// PriorCostPerResult is CostPerResult over the prior window.
func (s Summary) PriorCostPerResult() (float64, bool) {
	if !s.HasPrior || s.PriorPartial || s.PriorResults == 0 {
		return 0, false
	}
	return s.PriorSpend / float64(s.PriorResults), true
}

// DeltaPct returns the percentage change from prior to current. ok is
// false when prior is zero, which would make the percentage undefined.
func DeltaPct(current, prior float64) (float64, bool) {
	if prior == 0 {
		return 0, false
	}
	return (current - prior) / prior * 100, true
}

// FormatMoney renders a monetary value or Dash.
func FormatMoney(v float64, ok bool) string {
	if !ok {
		return Dash
	}
	return fmt.Sprintf("%.2f", v)
}

// FormatCount renders an integer metric or Dash.
func FormatCount(v int64, ok bool) string {
	if !ok {
		return Dash
	}
	return fmt.Sprintf("%d", v)
}

// FormatPct renders a signed percentage delta or Dash.
func FormatPct(v float64, ok bool) string {
	if !ok {
		return Dash
	}
	return fmt.Sprintf("%+.1f%%", v)
}
