package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/contracts"
)

// Snapshot is one immutable, timestamped bundle of trained artifacts plus
// the exact feature schema used to produce them. Optional heads stay nil
// when they were not trained.
type Snapshot struct {
	Dir         string
	FeatureCols []string
	PWin        *Booster
	EV          *Booster
	HoldDays    *Booster
	TouchFirst  *MultiClass
	Metrics     contracts.TrainMetrics
}

const (
	filePWin        = "model_pwin.json"
	fileEV          = "model_ev.json"
	fileHoldDays    = "model_hold_days.json"
	fileTouchFirst  = "model_tp_first.json"
	fileFeatureCols = "feature_cols.json"
	fileMetrics     = "metrics.json"
)

func modelsDir(dataDir string) string {
	return filepath.Join(dataDir, "ml", "models")
}

// ManifestPath returns the location of the latest-snapshot pointer.
func ManifestPath(dataDir string) string {
	return filepath.Join(modelsDir(dataDir), "latest.json")
}

// SaveSnapshot writes every artifact into a fresh timestamped directory
// and only then advances the latest pointer (atomic rename). A crash
// mid-write leaves the previous pointer intact.
func SaveSnapshot(dataDir string, snap *Snapshot, now time.Time) (string, error) {
	dir := filepath.Join(modelsDir(dataDir), now.Format("20060102_150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	write := func(name string, data []byte, err error) error {
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, name), data, 0o644)
	}

	if snap.PWin == nil || snap.EV == nil {
		return "", fmt.Errorf("snapshot requires the win classifier and the EV regressor")
	}

	data, err := snap.PWin.Marshal()
	if err := write(filePWin, data, err); err != nil {
		return "", fmt.Errorf("write %s: %w", filePWin, err)
	}
	data, err = snap.EV.Marshal()
	if err := write(fileEV, data, err); err != nil {
		return "", fmt.Errorf("write %s: %w", fileEV, err)
	}
	if snap.HoldDays != nil {
		data, err = snap.HoldDays.Marshal()
		if err := write(fileHoldDays, data, err); err != nil {
			return "", fmt.Errorf("write %s: %w", fileHoldDays, err)
		}
	}
	if snap.TouchFirst != nil {
		data, err = snap.TouchFirst.Marshal()
		if err := write(fileTouchFirst, data, err); err != nil {
			return "", fmt.Errorf("write %s: %w", fileTouchFirst, err)
		}
	}

	data, err = json.MarshalIndent(snap.FeatureCols, "", " ")
	if err := write(fileFeatureCols, data, err); err != nil {
		return "", fmt.Errorf("write %s: %w", fileFeatureCols, err)
	}
	data, err = json.MarshalIndent(snap.Metrics, "", " ")
	if err := write(fileMetrics, data, err); err != nil {
		return "", fmt.Errorf("write %s: %w", fileMetrics, err)
	}

	manifest := contracts.SnapshotManifest{Dir: dir, CreatedAt: now}
	data, err = json.MarshalIndent(manifest, "", " ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	tmp := ManifestPath(dataDir) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, ManifestPath(dataDir)); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("publish manifest: %w", err)
	}

	snap.Dir = dir
	return dir, nil
}

// LoadLatest resolves the latest pointer and loads the snapshot. A
// structured reason (non-empty second return) means "no usable snapshot";
// it is never an error condition for callers.
func LoadLatest(dataDir string) (*Snapshot, string) {
	manifestPath := ManifestPath(dataDir)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, "latest_dir_not_found:" + manifestPath
	}

	var manifest contracts.SnapshotManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, "manifest_unreadable:" + manifestPath
	}

	snap := &Snapshot{Dir: manifest.Dir}

	colsData, err := os.ReadFile(filepath.Join(manifest.Dir, fileFeatureCols))
	if err != nil {
		return nil, "feature_cols_missing:" + manifest.Dir
	}
	if err := json.Unmarshal(colsData, &snap.FeatureCols); err != nil {
		return nil, "feature_cols_unreadable:" + manifest.Dir
	}

	pwinData, err := os.ReadFile(filepath.Join(manifest.Dir, filePWin))
	if err != nil {
		return nil, "model_pwin_missing:" + manifest.Dir
	}
	if snap.PWin, err = UnmarshalBooster(pwinData); err != nil {
		return nil, "model_pwin_unreadable:" + manifest.Dir
	}

	// remaining heads are individually optional
	if evData, err := os.ReadFile(filepath.Join(manifest.Dir, fileEV)); err == nil {
		snap.EV, _ = UnmarshalBooster(evData)
	}
	if hdData, err := os.ReadFile(filepath.Join(manifest.Dir, fileHoldDays)); err == nil {
		snap.HoldDays, _ = UnmarshalBooster(hdData)
	}
	if tfData, err := os.ReadFile(filepath.Join(manifest.Dir, fileTouchFirst)); err == nil {
		snap.TouchFirst, _ = UnmarshalMultiClass(tfData)
	}
	if metricsData, err := os.ReadFile(filepath.Join(manifest.Dir, fileMetrics)); err == nil {
		_ = json.Unmarshal(metricsData, &snap.Metrics)
	}

	return snap, ""
}
