package contracts

import "time"

// PredictionInput is a single candidate's decision-time data, as supplied
// by the ranking caller. Everything is optional; whatever is absent is
// filled with the missing sentinel during vector construction.
type PredictionInput struct {
	FeatureSnapshot map[string]float64 `json:"feature_snapshot"`
	Score100        *float64           `json:"score_100,omitempty"`
	Entry           *float64           `json:"entry,omitempty"`
	TP              *float64           `json:"tp,omitempty"`
	SL              *float64           `json:"sl,omitempty"`
}

// PredictionResult is the predict response. ok=false means "no
// prediction available"; callers fall back to their non-ML path.
// Individually unavailable heads leave their outputs nil without
// failing the whole call.
type PredictionResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`

	PWin     *float64 `json:"p_win,omitempty"`
	EVPred   *float64 `json:"ev_pred,omitempty"`
	PTPFirst *float64 `json:"p_tp_first,omitempty"`
	PSLFirst *float64 `json:"p_sl_first,omitempty"`
}

// HeadSummary records whether one optional model head was trained and,
// when it was not, why.
type HeadSummary struct {
	Name    string `json:"name"`
	Trained bool   `json:"trained"`
	Reason  string `json:"reason,omitempty"`
}

// TrainMetrics is persisted into each model snapshot as metrics.json and
// echoed in the train command's summary.
type TrainMetrics struct {
	Rows      int     `json:"rows"`
	TrainRows int     `json:"train_rows"`
	ValRows   int     `json:"val_rows"`
	WinRate   float64 `json:"win_rate"`

	PWinAccuracy float64 `json:"p_win_accuracy"`
	PWinLogLoss  float64 `json:"p_win_log_loss"`

	// EVTarget is "r" when enough risk-normalized labels existed,
	// otherwise "pl".
	EVTarget string  `json:"ev_target"`
	EVMAE    float64 `json:"ev_mae"`

	Heads []HeadSummary `json:"heads"`

	TrainedAt time.Time `json:"trained_at"`
}

// SnapshotManifest is the content of ml/models/latest.json: the pointer
// that advances only after a snapshot is fully written.
type SnapshotManifest struct {
	Dir       string    `json:"dir"`
	CreatedAt time.Time `json:"created_at"`
}

// TrainSummary is the train command's machine-readable stdout object.
type TrainSummary struct {
	DatasetPath string       `json:"dataset_path"`
	SnapshotDir string       `json:"snapshot_dir,omitempty"`
	Published   bool         `json:"published"`
	DryRun      bool         `json:"dry_run,omitempty"`
	Metrics     TrainMetrics `json:"metrics"`
}
