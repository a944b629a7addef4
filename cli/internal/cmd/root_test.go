package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCliFilters(t *testing.T) {
	flags.project = "proj-a"
	flags.since = "2025-06-01"
	flags.until = "2025-06-30"
	t.Cleanup(func() { flags.project, flags.since, flags.until = "", "", "" })

	f, err := cliFilters(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "proj-a", f.Project)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), f.Since)
	// --until is inclusive of the named day.
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), f.Until)
}

func TestCliFiltersBadDate(t *testing.T) {
	flags.since = "June 1st"
	t.Cleanup(func() { flags.since = "" })

	_, err := cliFilters(time.UTC)
	require.Error(t, err)
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"summary", "daily", "monthly", "models", "sessions", "window", "serve"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
