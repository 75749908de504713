package app

import (
	"github.com/spf13/cobra"
)

// NewCovtrackCommand creates the root command for the covtrack tool.
func NewCovtrackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "covtrack",
		Short: "Ingest and aggregate code coverage reports.",
		Long: `Covtrack ingests coverage reports produced by test runners (Cobertura XML,
LCOV, JaCoCo XML, generic coverage XML), normalizes them into one canonical
model and maintains per-project historical aggregates for dashboards, trend
charts, badges and line heatmaps.`,
	}

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewIngestCommand())

	return cmd
}
