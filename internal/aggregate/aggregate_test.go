package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cclens/cclens/internal/model"
	"github.com/cclens/cclens/internal/pricing"
)

func priced(ts time.Time, modelName, session string, in, out int64) model.PricedUsageEvent {
	return pricing.Default().Price(model.UsageEvent{
		Timestamp: ts,
		SessionID: session,
		Model:     modelName,
		Tokens:    model.TokenCounts{InputTokens: in, OutputTokens: out},
	})
}

func TestRunDailyScenario(t *testing.T) {
	day := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	events := []model.PricedUsageEvent{
		priced(day, "claude-sonnet-4", "s1", 1000, 500),
		priced(day.Add(time.Minute), "claude-sonnet-4", "s1", 1000, 500),
		priced(day.Add(2*time.Minute), "claude-sonnet-4", "s2", 1000, 500),
	}

	res := Run(events, Filters{}, time.UTC)

	assert.Equal(t, int64(4500), res.Summary.Tokens.Total())
	assert.True(t, res.Summary.Cost.Equal(decimal.RequireFromString("0.0315")), "got %s", res.Summary.Cost)
	assert.Equal(t, 3, res.Summary.Events)
	assert.Equal(t, 2, res.Summary.Sessions)

	require.Len(t, res.Daily, 1)
	assert.Equal(t, "2025-06-01", res.Daily[0].Period)
	assert.Equal(t, int64(4500), res.Daily[0].Tokens.Total())

	require.Len(t, res.Monthly, 1)
	assert.Equal(t, "2025-06", res.Monthly[0].Period)
}

func TestModelBreakdownSumsToPeriodTotals(t *testing.T) {
	day := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	events := []model.PricedUsageEvent{
		priced(day, "claude-sonnet-4", "s1", 1000, 500),
		priced(day.Add(time.Minute), "claude-opus-4", "s1", 2000, 800),
		priced(day.Add(2*time.Minute), "claude-haiku-4-5", "s1", 300, 100),
	}

	res := Run(events, Filters{}, time.UTC)
	require.Len(t, res.Daily, 1)
	d := res.Daily[0]

	var tokens model.TokenCounts
	cost := decimal.Zero
	for _, st := range d.ByModel {
		tokens.Add(st.Tokens)
		cost = cost.Add(st.Cost)
	}
	assert.Equal(t, d.Tokens, tokens)
	assert.True(t, d.Cost.Equal(cost))

	// Model summaries cover the same totals and their shares sum to 1.
	var share float64
	modelCost := decimal.Zero
	for _, m := range res.Models {
		share += m.CostShare
		modelCost = modelCost.Add(m.Cost)
	}
	assert.True(t, res.Summary.Cost.Equal(modelCost))
	assert.InDelta(t, 1.0, share, 1e-9)
}

func TestSortNewestFirstCostTieBreak(t *testing.T) {
	d1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	d3 := time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC)
	events := []model.PricedUsageEvent{
		priced(d1, "claude-sonnet-4", "s1", 100, 50),
		priced(d2, "claude-sonnet-4", "s1", 100, 50),
		priced(d3, "claude-sonnet-4", "s1", 100, 50),
	}

	res := Run(events, Filters{}, time.UTC)
	require.Len(t, res.Daily, 3)
	assert.Equal(t, "2025-06-02", res.Daily[0].Period)
	assert.Equal(t, "2025-06-01", res.Daily[1].Period)
	assert.Equal(t, "2025-05-30", res.Daily[2].Period)
}

func TestMonthBoundaryBucketing(t *testing.T) {
	events := []model.PricedUsageEvent{
		priced(time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC), "claude-sonnet-4", "s1", 100, 50),
		priced(time.Date(2025, 2, 1, 0, 1, 0, 0, time.UTC), "claude-sonnet-4", "s1", 100, 50),
	}

	res := Run(events, Filters{}, time.UTC)
	require.Len(t, res.Daily, 2)
	require.Len(t, res.Monthly, 2)
	assert.Equal(t, "2025-02", res.Monthly[0].Period)
	assert.Equal(t, "2025-01", res.Monthly[1].Period)
}

func TestReportingLocationShiftsBuckets(t *testing.T) {
	// 23:30 UTC on Jan 31 is already Feb 1 in UTC+2.
	ev := priced(time.Date(2025, 1, 31, 23, 30, 0, 0, time.UTC), "claude-sonnet-4", "s1", 100, 50)

	utc := Run([]model.PricedUsageEvent{ev}, Filters{}, time.UTC)
	require.Len(t, utc.Daily, 1)
	assert.Equal(t, "2025-01-31", utc.Daily[0].Period)

	east := Run([]model.PricedUsageEvent{ev}, Filters{}, time.FixedZone("E2", 2*3600))
	require.Len(t, east.Daily, 1)
	assert.Equal(t, "2025-02-01", east.Daily[0].Period)
}

func TestUnresolvedTimestampsCountedNotBucketed(t *testing.T) {
	dated := priced(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), "claude-sonnet-4", "s1", 100, 50)
	undated := priced(time.Time{}, "claude-sonnet-4", "s1", 100, 50)

	res := Run([]model.PricedUsageEvent{dated, undated}, Filters{}, time.UTC)

	assert.Equal(t, 1, res.Summary.UnresolvedTimestamps)
	assert.Equal(t, 2, res.Summary.Events)
	assert.Equal(t, int64(300), res.Summary.Tokens.Total())

	require.Len(t, res.Daily, 1)
	assert.Equal(t, 1, res.Daily[0].Events)

	require.Len(t, res.Models, 1)
	assert.Equal(t, 2, res.Models[0].Events)
}

func TestFilters(t *testing.T) {
	d1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC)
	a := priced(d1, "claude-sonnet-4", "s1", 100, 50)
	a.ProjectPath = "proj-a"
	b := priced(d2, "claude-sonnet-4", "s2", 100, 50)
	b.ProjectPath = "proj-b"

	byProject := Run([]model.PricedUsageEvent{a, b}, Filters{Project: "proj-a"}, time.UTC)
	assert.Equal(t, 1, byProject.Summary.Events)
	assert.Equal(t, 1, byProject.Summary.Sessions)

	byRange := Run([]model.PricedUsageEvent{a, b}, Filters{
		Since: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC),
	}, time.UTC)
	assert.Equal(t, 1, byRange.Summary.Events)
	require.Len(t, byRange.Daily, 1)
	assert.Equal(t, "2025-06-05", byRange.Daily[0].Period)
}

func TestEmptyInput(t *testing.T) {
	res := Run(nil, Filters{}, time.UTC)
	assert.Zero(t, res.Summary.Events)
	assert.True(t, res.Summary.Cost.IsZero())
	assert.Empty(t, res.Daily)
	assert.Empty(t, res.Models)
}

func TestSessionRollup(t *testing.T) {
	d := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	events := []model.PricedUsageEvent{
		priced(d, "claude-sonnet-4", "s1", 100, 50),
		priced(d.Add(time.Hour), "claude-sonnet-4", "s1", 100, 50),
		priced(d.Add(2*time.Hour), "claude-sonnet-4", "s2", 100, 50),
	}

	res := Run(events, Filters{}, time.UTC)
	require.Len(t, res.Sessions, 2)
	// Newest activity first.
	assert.Equal(t, "s2", res.Sessions[0].SessionID)
	assert.Equal(t, "s1", res.Sessions[1].SessionID)
	assert.Equal(t, 2, res.Sessions[1].Events)
	assert.Equal(t, d, res.Sessions[1].FirstSeen)
	assert.Equal(t, d.Add(time.Hour), res.Sessions[1].LastSeen)
}
