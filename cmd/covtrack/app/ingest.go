package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/covtrack/covtrack/internal/config"
	"github.com/covtrack/covtrack/internal/ingest"
	"github.com/covtrack/covtrack/internal/logger"
	"github.com/covtrack/covtrack/internal/metrics"
	"github.com/covtrack/covtrack/internal/store"
)

// NewIngestCommand creates the "ingest" subcommand.
func NewIngestCommand() *cobra.Command {
	var (
		project string
		branch  string
		commit  string
		format  string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <report-file>",
		Short: "Ingest a single coverage report from a local file.",
		Long: `Parses a coverage report file, commits it to the configured store and
prints the resulting summary. With --dry-run the report is parsed and
validated against an in-memory store without touching the database, which is
useful for checking a CI artifact locally.

Examples:
  # Ingest an LCOV tracefile
  covtrack ingest --project demo --branch main lcov.info

  # Check a Cobertura report without writing anything
  covtrack ingest --project demo --dry-run coverage.xml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read report file: %w", err)
			}

			var st store.Store
			if dryRun {
				st = store.NewMemoryStore()
			} else {
				cfg, err := config.LoadServer()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				logger.Init(cfg.Log.Level)
				if cfg.Database.DSN == "" {
					return fmt.Errorf("database.dsn is required unless --dry-run is set")
				}
				st, err = store.Open(cfg.Database.DSN)
				if err != nil {
					return fmt.Errorf("failed to open store: %w", err)
				}
			}

			rep, err := ingest.New(st).Ingest(context.Background(), ingest.Request{
				ProjectID: project,
				Branch:    branch,
				CommitSHA: commit,
				Format:    format,
				Content:   content,
			})
			if err != nil {
				return err
			}

			percent := metrics.Percentage(rep.LinesCovered, rep.LinesTotal)
			fmt.Printf("report %s (%s): %s%% coverage, %d/%d lines, %d files\n",
				rep.ID, rep.Format, metrics.FormatPercent(percent),
				rep.LinesCovered, rep.LinesTotal, len(rep.Files))
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "project identifier (required)")
	cmd.Flags().StringVar(&branch, "branch", "main", "branch the report was produced on")
	cmd.Flags().StringVar(&commit, "commit", "", "commit reference, if known")
	cmd.Flags().StringVar(&format, "format", "", "declared report format; sniffed when empty")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and validate without writing to the database")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}
