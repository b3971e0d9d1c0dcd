package model

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/contracts"
)

func TestSaveSnapshot_RequiresCoreHeads(t *testing.T) {
	dir := t.TempDir()
	snap := &Snapshot{FeatureCols: []string{"rsi14"}, PWin: &Booster{Objective: ObjectiveBinary}}

	_, err := SaveSnapshot(dir, snap, time.Now())
	assert.Error(t, err)

	// a failed save must not publish a pointer
	_, reason := LoadLatest(dir)
	assert.Equal(t, "latest_dir_not_found:"+ManifestPath(dir), reason)
}

func TestSaveSnapshot_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	rows := makeRows(80, true, true, true)

	snap, err := newTestTrainer().Train(rows, contracts.FeatureColumns())
	require.NoError(t, err)

	now := time.Date(2026, 8, 3, 9, 30, 0, 0, time.UTC)
	snapDir, err := SaveSnapshot(dir, snap, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ml", "models", "20260803_093000"), snapDir)

	loaded, reason := LoadLatest(dir)
	require.Empty(t, reason)
	require.NotNil(t, loaded)

	assert.Equal(t, snapDir, loaded.Dir)
	assert.Equal(t, snap.FeatureCols, loaded.FeatureCols)
	require.NotNil(t, loaded.PWin)
	require.NotNil(t, loaded.EV)
	assert.NotNil(t, loaded.HoldDays)
	assert.NotNil(t, loaded.TouchFirst)
	assert.Equal(t, snap.Metrics.Rows, loaded.Metrics.Rows)

	// loaded model scores identically to the in-memory one
	x := vectorFromRow(&rows[3], snap.FeatureCols)
	assert.Equal(t, snap.PWin.Predict(x), loaded.PWin.Predict(x))
}

func TestPredictor_NoSnapshotIsStructuredFallback(t *testing.T) {
	dir := t.TempDir()
	p := NewPredictor(dir, zerolog.Nop())

	result := p.Predict(contracts.PredictionInput{
		FeatureSnapshot: map[string]float64{"rsi14": 55},
	})

	assert.False(t, result.OK)
	assert.Equal(t, "latest_dir_not_found:"+ManifestPath(dir), result.Reason)
	assert.Nil(t, result.PWin)
}

func TestPredictor_PredictsAfterPublish(t *testing.T) {
	dir := t.TempDir()
	p := NewPredictor(dir, zerolog.Nop())

	// before publish: fallback
	assert.False(t, p.Predict(contracts.PredictionInput{}).OK)

	rows := makeRows(80, true, true, true)
	snap, err := newTestTrainer().Train(rows, contracts.FeatureColumns())
	require.NoError(t, err)
	_, err = SaveSnapshot(dir, snap, time.Now())
	require.NoError(t, err)

	// after publish: the same predictor picks up the new pointer
	score := 72.0
	entry, tp, sl := 1000.0, 1100.0, 950.0
	result := p.Predict(contracts.PredictionInput{
		FeatureSnapshot: map[string]float64{"RSI14": 60, "atr_pct": 0.02},
		Score100:        &score,
		Entry:           &entry,
		TP:              &tp,
		SL:              &sl,
	})

	require.True(t, result.OK)
	require.NotNil(t, result.PWin)
	assert.GreaterOrEqual(t, *result.PWin, 0.0)
	assert.LessOrEqual(t, *result.PWin, 1.0)
	require.NotNil(t, result.EVPred)
	require.NotNil(t, result.PTPFirst)
	require.NotNil(t, result.PSLFirst)
}

func TestPredictor_HighRSIWinsOverLowRSI(t *testing.T) {
	dir := t.TempDir()
	rows := makeRows(80, false, false, false)
	snap, err := newTestTrainer().Train(rows, contracts.FeatureColumns())
	require.NoError(t, err)
	_, err = SaveSnapshot(dir, snap, time.Now())
	require.NoError(t, err)

	p := NewPredictor(dir, zerolog.Nop())
	strong := p.Predict(contracts.PredictionInput{FeatureSnapshot: map[string]float64{"rsi14": 65, "atr_pct": 0.02}})
	weak := p.Predict(contracts.PredictionInput{FeatureSnapshot: map[string]float64{"rsi14": 35, "atr_pct": 0.02}})

	require.True(t, strong.OK)
	require.True(t, weak.OK)
	assert.Greater(t, *strong.PWin, *weak.PWin)
}

func TestBuildVector_GatesAndDerivedColumns(t *testing.T) {
	cols := []string{"rsi14", "score_100", "tp_pct", "sl_pct", "side_id", "gap_pct"}

	score := 72.0
	entry, tp, sl := 1000.0, 1100.0, 950.0
	x := buildVector(cols, contracts.PredictionInput{
		FeatureSnapshot: map[string]float64{
			"RSI14":   55.2,  // case-normalized
			"eval_pl": 99999, // outcome namespace, ignored
			"side_id": 2,
		},
		Score100: &score,
		Entry:    &entry,
		TP:       &tp,
		SL:       &sl,
	})

	assert.Equal(t, 55.2, x[0])
	assert.Equal(t, 72.0, x[1])
	assert.InDelta(t, 0.10, x[2], 1e-9)
	assert.InDelta(t, 0.05, x[3], 1e-9)
	assert.Equal(t, 2.0, x[4])
	assert.True(t, math.IsNaN(x[5]), "absent column must be NaN")
}

func TestBuildVector_MissingCategoricalDefaultsToZero(t *testing.T) {
	x := buildVector([]string{"side_id"}, contracts.PredictionInput{})
	assert.Equal(t, 0.0, x[0])
}
