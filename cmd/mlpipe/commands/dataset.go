package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/pipeline"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Training dataset operations",
	Long: `Build and inspect the supervised-learning dataset derived from
the simulated-trade event logs.`,
}

var (
	// build flags
	buildDays        int
	buildIncludeLive bool
	buildMinQty      float64
	buildUser        string
	buildOut         string
	buildForceRow    bool
	buildDryRun      bool
)

var datasetBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the training dataset from raw event logs",
	Long: `Runs normalize → extract → store as one unit of work:

1. Parse every event log, gate on accepted variants, dedup first-seen-wins
2. Extract leakage-free feature/label rows (live mode excluded by default)
3. Write monthly partitions plus the latest full dataset

Prints one JSON summary object to stdout. Exits non-zero only on setup
errors (e.g. missing events directory); data-quality problems show up as
counters in the summary.

Example:
  go run ./cmd/mlpipe dataset build --days 180
  go run ./cmd/mlpipe dataset build --min-qty 10 --include-live
  go run ./cmd/mlpipe dataset build --dry-run`,
	RunE: runDatasetBuild,
}

func init() {
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetBuildCmd)

	datasetBuildCmd.Flags().IntVar(&buildDays, "days", 0, "lookback window in days (0 = config default)")
	datasetBuildCmd.Flags().BoolVar(&buildIncludeLive, "include-live", false, "include live-mode trades")
	datasetBuildCmd.Flags().Float64Var(&buildMinQty, "min-qty", 0, "minimum quantity per trade (0 = config default)")
	datasetBuildCmd.Flags().StringVar(&buildUser, "user", "", "restrict to one user id")
	datasetBuildCmd.Flags().StringVar(&buildOut, "out", "", "output root directory (default: DATA_DIR)")
	datasetBuildCmd.Flags().BoolVar(&buildForceRow, "force-row-format", false, "write CSV instead of parquet")
	datasetBuildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "count everything, write nothing")
}

func runDatasetBuild(cmd *cobra.Command, args []string) error {
	startedAt := time.Now()

	cfg, log, err := initDeps()
	if err != nil {
		return err
	}

	builder := pipeline.NewBuilder(cfg, log.Zerolog())
	summary, err := builder.Run(cmd.Context(), pipeline.Options{
		Days:           buildDays,
		MinQty:         buildMinQty,
		IncludeLive:    buildIncludeLive,
		UserID:         buildUser,
		OutDir:         buildOut,
		ForceRowFormat: buildForceRow,
		DryRun:         buildDryRun,
		RunDate:        startedAt,
	})
	if err != nil {
		return fmt.Errorf("dataset build: %w", err)
	}

	if !buildDryRun {
		mirrorRunLog(cfg, log, summary.RunID, "dataset_build", summary, startedAt)
	}

	return printSummary(summary)
}
