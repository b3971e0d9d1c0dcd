package model

import (
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/contracts"
	"github.com/gorozooo/my-stock-portfolio-sub001/internal/features"
)

// Predictor serves single-row inference against the latest model
// snapshot. It never returns an error: missing artifacts become a
// structured ok=false result and the caller's ranking logic proceeds on
// its non-ML path.
//
// Snapshots are immutable, so concurrent Predict calls are safe; the
// only synchronization is around the cached snapshot reload.
type Predictor struct {
	dataDir string
	log     zerolog.Logger

	mu          sync.RWMutex
	cached      *Snapshot
	manifestMod time.Time
}

// NewPredictor creates a predictor rooted at dataDir.
func NewPredictor(dataDir string, log zerolog.Logger) *Predictor {
	return &Predictor{
		dataDir: dataDir,
		log:     log.With().Str("component", "model.predictor").Logger(),
	}
}

// Predict computes p_win, ev_pred and (when the head exists) the
// touch-first probabilities for one candidate.
func (p *Predictor) Predict(input contracts.PredictionInput) contracts.PredictionResult {
	snap, reason := p.snapshot()
	if snap == nil {
		return contracts.PredictionResult{OK: false, Reason: reason}
	}

	x := buildVector(snap.FeatureCols, input)

	result := contracts.PredictionResult{OK: true}

	if snap.PWin != nil {
		v := snap.PWin.Predict(x)
		result.PWin = &v
	}
	if snap.EV != nil {
		v := snap.EV.Predict(x)
		result.EVPred = &v
	}
	if snap.TouchFirst != nil {
		probs := snap.TouchFirst.PredictProba(x)
		// fixed class-index convention: 0=none, 1=tp_first, 2=sl_first
		if len(probs) > contracts.TouchSLFirst.ClassIndex() {
			tp := probs[contracts.TouchTPFirst.ClassIndex()]
			sl := probs[contracts.TouchSLFirst.ClassIndex()]
			result.PTPFirst = &tp
			result.PSLFirst = &sl
		}
	}

	return result
}

// snapshot returns the cached snapshot, reloading when the latest
// pointer changed since the last load.
func (p *Predictor) snapshot() (*Snapshot, string) {
	manifestPath := ManifestPath(p.dataDir)
	info, err := os.Stat(manifestPath)
	if err != nil {
		return nil, "latest_dir_not_found:" + manifestPath
	}

	p.mu.RLock()
	if p.cached != nil && info.ModTime().Equal(p.manifestMod) {
		snap := p.cached
		p.mu.RUnlock()
		return snap, ""
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil && info.ModTime().Equal(p.manifestMod) {
		return p.cached, ""
	}

	snap, reason := LoadLatest(p.dataDir)
	if snap == nil {
		return nil, reason
	}
	p.cached = snap
	p.manifestMod = info.ModTime()
	p.log.Info().Str("snapshot", snap.Dir).Msg("model snapshot loaded")
	return snap, ""
}

// buildVector assembles exactly the training-time column vector from the
// candidate's data. Unavailable numeric columns get the NaN missing
// sentinel, unavailable categorical ids get 0.
func buildVector(cols []string, input contracts.PredictionInput) []float64 {
	snapshot := make(map[string]float64, len(input.FeatureSnapshot))
	for k, v := range input.FeatureSnapshot {
		name := strings.ToLower(strings.TrimSpace(k))
		// the leakage gate holds at inference too: outcome-namespace
		// keys in the caller's payload are ignored outright
		if features.AllowedFeatureName(name) {
			snapshot[name] = v
		}
	}

	x := make([]float64, len(cols))
	for i, col := range cols {
		x[i] = resolveColumn(col, snapshot, input)
	}
	return x
}

func resolveColumn(col string, snapshot map[string]float64, input contracts.PredictionInput) float64 {
	if strings.HasSuffix(col, "_id") {
		if v, ok := snapshot[col]; ok && v >= 0 {
			return v
		}
		return 0
	}

	switch col {
	case "score_100":
		if input.Score100 != nil {
			return *input.Score100
		}
	case "tp_pct":
		if input.Entry != nil && input.TP != nil && *input.Entry > 0 {
			return (*input.TP - *input.Entry) / *input.Entry
		}
	case "sl_pct":
		if input.Entry != nil && input.SL != nil && *input.Entry > 0 {
			return (*input.Entry - *input.SL) / *input.Entry
		}
	}

	if v, ok := snapshot[col]; ok {
		return v
	}
	return math.NaN()
}
