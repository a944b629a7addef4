package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cclens/cclens/cli/internal/output"
	"github.com/cclens/cclens/internal/aggregate"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Overall usage totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		f, err := cliFilters(deps.Location)
		if err != nil {
			return err
		}
		sum, stats, err := deps.Engine.Summary(cmd.Context(), f)
		if err != nil {
			return err
		}
		if flags.asJSON {
			return printJSON(sum)
		}

		fmt.Printf("Tokens       %s (in %s / out %s / cache-w %s / cache-r %s)\n",
			output.FormatNumber(sum.Tokens.Total()),
			output.FormatNumber(sum.Tokens.InputTokens),
			output.FormatNumber(sum.Tokens.OutputTokens),
			output.FormatNumber(sum.Tokens.CacheCreationTokens),
			output.FormatNumber(sum.Tokens.CacheReadTokens))
		fmt.Printf("Cost         %s%s\n", output.FormatCost(sum.Cost), estimateMark(sum.Estimated))
		fmt.Printf("Requests     %s across %d sessions\n",
			output.FormatNumber(int64(sum.Events)), sum.Sessions)
		if !sum.FirstEvent.IsZero() {
			fmt.Printf("Range        %s to %s\n",
				sum.FirstEvent.In(deps.Location).Format("2006-01-02"),
				sum.LastEvent.In(deps.Location).Format("2006-01-02"))
		}
		if sum.UnresolvedTimestamps > 0 {
			fmt.Printf("Undated      %d requests excluded from daily/monthly views\n",
				sum.UnresolvedTimestamps)
		}
		fmt.Printf("Source       %d files, %d malformed lines skipped\n",
			stats.Files, stats.Malformed)
		return nil
	},
}

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Per-day usage, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPeriodReport(cmd, "daily")
	},
}

var monthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Per-month usage, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPeriodReport(cmd, "monthly")
	},
}

func runPeriodReport(cmd *cobra.Command, kind string) error {
	deps, err := buildDeps()
	if err != nil {
		return err
	}
	f, err := cliFilters(deps.Location)
	if err != nil {
		return err
	}

	var buckets []aggregate.PeriodUsage
	if kind == "daily" {
		buckets, err = deps.Engine.Daily(cmd.Context(), f)
	} else {
		buckets, err = deps.Engine.Monthly(cmd.Context(), f)
	}
	if err != nil {
		return err
	}
	if flags.asJSON {
		return printJSON(buckets)
	}

	tbl := output.NewTable(
		[]string{"Period", "Input", "Output", "Cache W", "Cache R", "Total", "Cost"},
		false, true, true, true, true, true, true)
	for _, b := range buckets {
		tbl.AddRow(b.Period,
			output.FormatNumber(b.Tokens.InputTokens),
			output.FormatNumber(b.Tokens.OutputTokens),
			output.FormatNumber(b.Tokens.CacheCreationTokens),
			output.FormatNumber(b.Tokens.CacheReadTokens),
			output.FormatNumber(b.Tokens.Total()),
			output.FormatCost(b.Cost)+estimateMark(b.Estimated))
	}
	fmt.Print(tbl.Render())
	return nil
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Per-model usage, highest cost first",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		f, err := cliFilters(deps.Location)
		if err != nil {
			return err
		}
		models, err := deps.Engine.ModelBreakdown(cmd.Context(), f)
		if err != nil {
			return err
		}
		if flags.asJSON {
			return printJSON(models)
		}

		tbl := output.NewTable(
			[]string{"Model", "Requests", "Tokens", "Cost", "Share"},
			false, true, true, true, true)
		for _, m := range models {
			tbl.AddRow(output.ShortenModelName(m.Model),
				output.FormatNumber(int64(m.Events)),
				output.FormatNumber(m.Tokens.Total()),
				output.FormatCost(m.Cost)+estimateMark(m.Estimated),
				strconv.FormatFloat(m.CostShare*100, 'f', 1, 64)+"%")
		}
		fmt.Print(tbl.Render())
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Per-session usage, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		f, err := cliFilters(deps.Location)
		if err != nil {
			return err
		}
		sessions, err := deps.Engine.Sessions(cmd.Context(), f)
		if err != nil {
			return err
		}
		if flags.asJSON {
			return printJSON(sessions)
		}

		tbl := output.NewTable(
			[]string{"Session", "Project", "Requests", "Tokens", "Cost", "Last Active"},
			false, false, true, true, true, false)
		for _, s := range sessions {
			last := ""
			if !s.LastSeen.IsZero() {
				last = s.LastSeen.In(deps.Location).Format("2006-01-02 15:04")
			}
			tbl.AddRow(s.SessionID, s.ProjectPath,
				output.FormatNumber(int64(s.Events)),
				output.FormatNumber(s.Tokens.Total()),
				output.FormatCost(s.Cost), last)
		}
		fmt.Print(tbl.Render())
		return nil
	},
}

func estimateMark(estimated bool) string {
	if estimated {
		return " (est.)"
	}
	return ""
}
