package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/contracts"
	"github.com/gorozooo/my-stock-portfolio-sub001/internal/model"
)

var (
	predictFeatures string
	predictScore    float64
	predictEntry    float64
	predictTP       float64
	predictSL       float64
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "One-shot inference for a single candidate",
	Long: `Builds the training-time feature vector from the given snapshot
and design fields and prints the prediction JSON. ok=false (for example
when no model snapshot exists yet) is a normal result, not an error.

--features takes the decision-time indicator snapshot as inline JSON or
@path to a file.

Example:
  go run ./cmd/mlpipe predict --features '{"RSI14":55.2,"atr_pct":0.03}' --score 72 --entry 1000 --tp 1100 --sl 950
  go run ./cmd/mlpipe predict --features @snapshot.json`,
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().StringVar(&predictFeatures, "features", "{}", "feature snapshot JSON (or @file)")
	predictCmd.Flags().Float64Var(&predictScore, "score", -1, "score_100 value")
	predictCmd.Flags().Float64Var(&predictEntry, "entry", 0, "entry price")
	predictCmd.Flags().Float64Var(&predictTP, "tp", 0, "take-profit price")
	predictCmd.Flags().Float64Var(&predictSL, "sl", 0, "stop-loss price")
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, log, err := initDeps()
	if err != nil {
		return err
	}

	raw := []byte(predictFeatures)
	if len(predictFeatures) > 1 && predictFeatures[0] == '@' {
		raw, err = os.ReadFile(predictFeatures[1:])
		if err != nil {
			return fmt.Errorf("read features file: %w", err)
		}
	}

	var snapshot map[string]float64
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return fmt.Errorf("parse features JSON: %w", err)
	}

	input := contracts.PredictionInput{FeatureSnapshot: snapshot}
	if predictScore >= 0 {
		input.Score100 = &predictScore
	}
	if predictEntry > 0 {
		input.Entry = &predictEntry
	}
	if predictTP > 0 {
		input.TP = &predictTP
	}
	if predictSL > 0 {
		input.SL = &predictSL
	}

	predictor := model.NewPredictor(cfg.Data.Dir, log.Zerolog())
	result := predictor.Predict(input)

	return printSummary(result)
}
