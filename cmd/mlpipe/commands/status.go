package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/dataset"
	"github.com/gorozooo/my-stock-portfolio-sub001/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current pipeline artifact state",
	Long: `Reports which artifacts exist right now: the canonical behavior
stream, the latest dataset, and the published model snapshot.

Example:
  go run ./cmd/mlpipe status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, _, err := initDeps()
	if err != nil {
		return err
	}

	out := map[string]interface{}{
		"data_dir": cfg.Data.Dir,
	}

	behaviorPath := filepath.Join(cfg.Data.Dir, "behavior", "latest_behavior.jsonl")
	if info, err := os.Stat(behaviorPath); err == nil {
		out["behavior"] = map[string]interface{}{
			"path":        behaviorPath,
			"size_bytes":  info.Size(),
			"modified_at": info.ModTime(),
		}
	}

	if path, err := dataset.ProbeLatest(cfg.Data.Dir); err == nil {
		out["dataset"] = map[string]interface{}{"path": path}
	}

	if snap, reason := model.LoadLatest(cfg.Data.Dir); snap != nil {
		out["model"] = map[string]interface{}{
			"snapshot_dir": snap.Dir,
			"feature_cols": len(snap.FeatureCols),
			"metrics":      snap.Metrics,
		}
	} else {
		out["model"] = map[string]interface{}{"reason": reason}
	}

	return printSummary(out)
}
