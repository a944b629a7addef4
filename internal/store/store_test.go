package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cclens/cclens/internal/aggregate"
	"github.com/cclens/cclens/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cclens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestProjects(t *testing.T) {
	s := openTest(t)

	t1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertProject("proj-a", t1))
	require.NoError(t, s.UpsertProject("proj-b", t1.Add(time.Hour)))

	// Re-upserting moves last_seen, keeps one row.
	require.NoError(t, s.UpsertProject("proj-a", t1.Add(2*time.Hour)))

	projects, err := s.ListProjects()
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "proj-a", projects[0].Path)
	assert.Equal(t, "proj-b", projects[1].Path)
	assert.NotEmpty(t, projects[0].ID)
	assert.True(t, projects[0].FirstSeen.Equal(t1))
}

func TestReplaceSummaries(t *testing.T) {
	s := openTest(t)

	buckets := []aggregate.PeriodUsage{
		{
			Period: "2025-06-02",
			Tokens: model.TokenCounts{InputTokens: 2000, OutputTokens: 1000},
			Cost:   decimal.RequireFromString("0.021"),
			Events: 2,
		},
		{
			Period: "2025-06-01",
			Tokens: model.TokenCounts{InputTokens: 1000, OutputTokens: 500},
			Cost:   decimal.RequireFromString("0.0105"),
			Events: 1,
		},
	}
	require.NoError(t, s.ReplaceSummaries("daily", buckets))

	cached, err := s.Summaries("daily")
	require.NoError(t, err)
	require.Len(t, cached, 2)
	assert.Equal(t, "2025-06-02", cached[0].Period)
	assert.Equal(t, int64(2000), cached[0].InputTokens)
	assert.Equal(t, "0.021", cached[0].Cost)

	// Replacing swaps the whole period type.
	require.NoError(t, s.ReplaceSummaries("daily", buckets[:1]))
	cached, err = s.Summaries("daily")
	require.NoError(t, err)
	require.Len(t, cached, 1)

	// Other period types are untouched.
	require.NoError(t, s.ReplaceSummaries("monthly", []aggregate.PeriodUsage{{
		Period: "2025-06", Cost: decimal.Zero,
	}}))
	monthly, err := s.Summaries("monthly")
	require.NoError(t, err)
	require.Len(t, monthly, 1)
	daily, err := s.Summaries("daily")
	require.NoError(t, err)
	require.Len(t, daily, 1)
}

func TestSummariesEmpty(t *testing.T) {
	s := openTest(t)
	cached, err := s.Summaries("daily")
	require.NoError(t, err)
	assert.Empty(t, cached)
}
