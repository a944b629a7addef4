// Package cmd implements the cclens command tree.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cclens/cclens/internal/aggregate"
	"github.com/cclens/cclens/internal/app"
	"github.com/cclens/cclens/internal/config"
)

var flags struct {
	configPath string
	project    string
	since      string
	until      string
	plan       string
	timezone   string
	asJSON     bool
	offline    bool
}

var rootCmd = &cobra.Command{
	Use:           "cclens",
	Short:         "Local Claude Code usage reports and rate-limit tracking",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to config file")
	pf.StringVar(&flags.project, "project", "", "limit to one project")
	pf.StringVar(&flags.since, "since", "", "start date (YYYY-MM-DD, inclusive)")
	pf.StringVar(&flags.until, "until", "", "end date (YYYY-MM-DD, inclusive)")
	pf.StringVar(&flags.plan, "plan", "", "subscription plan: pro, max5x, max20x or custom")
	pf.StringVar(&flags.timezone, "timezone", "", "reporting timezone, e.g. Europe/Berlin")
	pf.BoolVar(&flags.asJSON, "json", false, "emit JSON instead of tables")
	pf.BoolVar(&flags.offline, "offline", false, "never fetch prices online")

	rootCmd.AddCommand(summaryCmd, dailyCmd, monthlyCmd, modelsCmd, sessionsCmd, windowCmd, serveCmd)
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.plan != "" {
		cfg.Plan = flags.plan
	}
	if flags.timezone != "" {
		cfg.Timezone = flags.timezone
	}
	if flags.offline {
		cfg.Pricing.Offline = true
	}
	return cfg, nil
}

func buildDeps() (*app.Deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.BuildQueryOnly(cfg, cfg.NewLogger())
}

// cliFilters builds aggregation filters from the shared flags.
func cliFilters(loc *time.Location) (aggregate.Filters, error) {
	f := aggregate.Filters{Project: flags.project}
	if flags.since != "" {
		t, err := time.ParseInLocation("2006-01-02", flags.since, loc)
		if err != nil {
			return f, fmt.Errorf("bad --since date %q", flags.since)
		}
		f.Since = t
	}
	if flags.until != "" {
		t, err := time.ParseInLocation("2006-01-02", flags.until, loc)
		if err != nil {
			return f, fmt.Errorf("bad --until date %q", flags.until)
		}
		f.Until = t.AddDate(0, 0, 1)
	}
	return f, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
