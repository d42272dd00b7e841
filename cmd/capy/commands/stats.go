package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/capy-discord/capy/pkg/report"
)

func newStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the statistics report for a demo session",
		Long: `Print the statistics report the bot shows for its in-memory metrics,
filled with a short demo session. Use "capy simulate" to produce a report
from the live pipeline instead.`,
		Example: `  # Human-readable report
  capy stats

  # Machine-readable report
  capy stats --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			snap := report.DemoSnapshot(now)
			if jsonOutput {
				return report.RenderJSON(cmd.OutOrStdout(), snap, now)
			}
			return report.Render(cmd.OutOrStdout(), snap, now)
		},
	}

	return cmd
}
