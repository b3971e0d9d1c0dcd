package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/contracts"
	"github.com/gorozooo/my-stock-portfolio-sub001/internal/dataset"
	"github.com/gorozooo/my-stock-portfolio-sub001/internal/model"
)

var (
	trainDataset string
	trainRounds  int
	trainDryRun  bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train outcome models on the latest dataset",
	Long: `Trains the win classifier and EV regressor (plus the hold-days
and touch-first heads when enough labeled data exists) and publishes a
new model snapshot. The latest pointer only advances after every
artifact is written; a failed or killed run leaves the previous
snapshot in place.

The dataset is located through the latest pointer (columnar artifact
probed first, row-oriented second) unless --dataset overrides it.

Example:
  go run ./cmd/mlpipe train
  go run ./cmd/mlpipe train --rounds 200
  go run ./cmd/mlpipe train --dry-run`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringVar(&trainDataset, "dataset", "", "dataset path (default: latest pointer)")
	trainCmd.Flags().IntVar(&trainRounds, "rounds", 0, "boosting rounds (0 = config default)")
	trainCmd.Flags().BoolVar(&trainDryRun, "dry-run", false, "train and report metrics without publishing")
}

func runTrain(cmd *cobra.Command, args []string) error {
	startedAt := time.Now()

	cfg, log, err := initDeps()
	if err != nil {
		return err
	}

	datasetPath := trainDataset
	if datasetPath == "" {
		datasetPath, err = dataset.ProbeLatest(cfg.Data.Dir)
		if err != nil {
			return fmt.Errorf("locate dataset: %w", err)
		}
	}

	rows, cols, err := dataset.Read(datasetPath)
	if err != nil {
		return fmt.Errorf("read dataset: %w", err)
	}

	params := model.TrainParams{
		Rounds:       cfg.Train.Rounds,
		LearningRate: cfg.Train.LearningRate,
		ValFraction:  cfg.Train.ValFraction,
		MinRows:      cfg.Train.MinRows,
	}
	if trainRounds > 0 {
		params.Rounds = trainRounds
	}

	trainer := model.NewTrainer(params, log.Zerolog())
	snap, err := trainer.Train(rows, cols)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	summary := contracts.TrainSummary{
		DatasetPath: datasetPath,
		DryRun:      trainDryRun,
		Metrics:     snap.Metrics,
	}

	if !trainDryRun {
		dir, err := model.SaveSnapshot(cfg.Data.Dir, snap, startedAt)
		if err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		summary.SnapshotDir = dir
		summary.Published = true

		mirrorRunLog(cfg, log, startedAt.Format("20060102_150405"), "train", summary, startedAt)
	}

	return printSummary(summary)
}
