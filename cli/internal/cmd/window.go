package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cclens/cclens/cli/internal/output"
)

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Current 5-hour rate-limit window",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		f, err := cliFilters(deps.Location)
		if err != nil {
			return err
		}
		rep, err := deps.Engine.CurrentWindow(cmd.Context(), f, time.Now())
		if err != nil {
			return err
		}
		if flags.asJSON {
			return printJSON(rep)
		}

		if !rep.HasActiveWindow {
			fmt.Println("No active window. The next request starts a fresh 5-hour window.")
			return nil
		}

		loc := deps.Location
		fmt.Printf("Window       %s to %s (%s plan)\n",
			rep.WindowStart.In(loc).Format("15:04"),
			rep.ResetTime.In(loc).Format("15:04"),
			deps.Plan)
		fmt.Printf("Resets in    %s\n", (time.Duration(rep.MinutesUntilReset) * time.Minute).Round(time.Minute))
		fmt.Printf("Tokens       %s", output.FormatNumber(rep.Tokens.Total()))
		if rep.Limit > 0 {
			fmt.Printf(" of %s (%.1f%%), %s remaining",
				output.FormatNumber(rep.Limit), rep.PercentUsed,
				output.FormatNumber(rep.Remaining))
		}
		fmt.Println()
		fmt.Printf("Cost         %s over %d requests\n",
			output.FormatCost(rep.Cost), rep.Messages)
		if rep.BurnRate != nil {
			fmt.Printf("Burn rate    %s tokens/min, %s/hr\n",
				output.FormatNumber(int64(rep.BurnRate.TokensPerMinute)),
				output.FormatCost(rep.BurnRate.CostPerHour))
		}
		if rep.Projection != nil {
			fmt.Printf("Projected    %s tokens, %s by reset\n",
				output.FormatNumber(rep.Projection.TotalTokens),
				output.FormatCost(rep.Projection.TotalCost))
		}
		return nil
	},
}
