package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mlpipe",
	Short: "Trade-outcome learning pipeline",
	Long: `Batch pipeline that turns simulated-trade event logs into a
leakage-free training dataset, trains the outcome models, and serves
single-candidate predictions back to the ranking logic.

Stages:
  dataset build   normalize + dedup raw events, extract rows, write partitions
  train           fit models on the latest dataset, publish a snapshot
  predict         one-shot inference for a single candidate
  serve           HTTP prediction API
  status          show current artifact state

Usage:
  go run ./cmd/mlpipe [command]

Examples:
  go run ./cmd/mlpipe dataset build --days 180
  go run ./cmd/mlpipe train
  go run ./cmd/mlpipe serve`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
