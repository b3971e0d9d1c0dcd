package model

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/contracts"
	"github.com/gorozooo/my-stock-portfolio-sub001/internal/features"
)

// TrainParams tune the boosting runs and the validation split.
type TrainParams struct {
	Rounds       int
	LearningRate float64
	ValFraction  float64
	// MinRows: below this, train and validation collapse into the same
	// set (degraded but never empty).
	MinRows int
}

// minEVRows and the 10% fraction gate whether the EV regressor targets
// the risk-normalized r instead of raw pl.
const minEVRows = 20

// minHoldRows / minTouchRows gate the optional heads.
const (
	minHoldRows  = 20
	minTouchRows = 30
)

// Trainer fits the model heads from the latest dataset.
type Trainer struct {
	params TrainParams
	log    zerolog.Logger
}

// NewTrainer creates a trainer.
func NewTrainer(params TrainParams, log zerolog.Logger) *Trainer {
	if params.Rounds <= 0 {
		params.Rounds = 120
	}
	if params.LearningRate <= 0 {
		params.LearningRate = 0.1
	}
	if params.ValFraction <= 0 || params.ValFraction >= 1 {
		params.ValFraction = 0.2
	}
	if params.MinRows <= 0 {
		params.MinRows = 50
	}
	return &Trainer{
		params: params,
		log:    log.With().Str("component", "model.trainer").Logger(),
	}
}

// Train builds a snapshot (not yet persisted) from dataset rows.
// availableCols is what the dataset artifact actually carried; the
// feature list is the allow-list intersected with it, re-checked against
// the leakage gate.
func (t *Trainer) Train(rows []contracts.TrainRow, availableCols []string) (*Snapshot, error) {
	usable := rows[:0:0]
	for _, row := range rows {
		if contracts.ValidLabel(row.Label) {
			usable = append(usable, row)
		}
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("no trainable rows in dataset (%d raw rows)", len(rows))
	}

	cols := featureList(availableCols)
	if len(cols) == 0 {
		return nil, fmt.Errorf("no usable feature columns in dataset")
	}

	X := make([][]float64, len(usable))
	for i := range usable {
		X[i] = vectorFromRow(&usable[i], cols)
	}

	trainIdx, valIdx := t.split(len(usable))

	metrics := contracts.TrainMetrics{
		Rows:      len(usable),
		TrainRows: len(trainIdx),
		ValRows:   len(valIdx),
		TrainedAt: time.Now(),
	}

	snap := &Snapshot{FeatureCols: cols}

	// win classifier
	yWin := make([]float64, len(usable))
	var wins int
	for i := range usable {
		if contracts.Label(usable[i].Label) == contracts.LabelWin {
			yWin[i] = 1
			wins++
		}
	}
	metrics.WinRate = float64(wins) / float64(len(usable))

	snap.PWin = TrainBooster(subset(X, trainIdx), subsetF(yWin, trainIdx), ObjectiveBinary, t.params.Rounds, t.params.LearningRate)
	metrics.PWinAccuracy, metrics.PWinLogLoss = evalBinary(snap.PWin, subset(X, valIdx), subsetF(yWin, valIdx))
	metrics.Heads = append(metrics.Heads, contracts.HeadSummary{Name: "p_win", Trained: true})

	// EV regressor: r when enough rows carry it, else pl
	snap.EV, metrics.EVTarget, metrics.EVMAE = t.trainEV(usable, X, trainIdx, valIdx)
	metrics.Heads = append(metrics.Heads, contracts.HeadSummary{Name: "ev", Trained: true, Reason: "target=" + metrics.EVTarget})

	// optional heads
	snap.HoldDays, metrics.Heads = t.trainHoldDays(usable, X, metrics.Heads)
	snap.TouchFirst, metrics.Heads = t.trainTouchFirst(usable, X, metrics.Heads)

	snap.Metrics = metrics

	t.log.Info().
		Int("rows", metrics.Rows).
		Int("train_rows", metrics.TrainRows).
		Int("val_rows", metrics.ValRows).
		Float64("win_rate", metrics.WinRate).
		Str("ev_target", metrics.EVTarget).
		Msg("training completed")

	return snap, nil
}

// featureList applies the allow-list, the dataset intersection and the
// leakage gate, in that order.
func featureList(availableCols []string) []string {
	available := make(map[string]struct{}, len(availableCols))
	for _, c := range availableCols {
		available[c] = struct{}{}
	}
	var cols []string
	for _, c := range contracts.FeatureColumns() {
		if _, ok := available[c]; ok {
			cols = append(cols, c)
		}
	}
	return features.SelectFeatureColumns(cols)
}

func vectorFromRow(row *contracts.TrainRow, cols []string) []float64 {
	x := make([]float64, len(cols))
	for i, c := range cols {
		v, ok := row.FeatureValue(c)
		if !ok {
			v = math.NaN()
		}
		x[i] = v
	}
	return x
}

// split shuffles row indices into train/validation. Small datasets use
// the whole set for both sides rather than training on nothing.
func (t *Trainer) split(n int) ([]int, []int) {
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	if n < t.params.MinRows {
		t.log.Warn().Int("rows", n).Int("min_rows", t.params.MinRows).
			Msg("dataset too small, train and validation collapse to the full set")
		return all, all
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	rng.Shuffle(n, func(i, j int) { all[i], all[j] = all[j], all[i] })

	nVal := int(float64(n) * t.params.ValFraction)
	if nVal < 1 {
		nVal = 1
	}
	return all[nVal:], all[:nVal]
}

func (t *Trainer) trainEV(rows []contracts.TrainRow, X [][]float64, trainIdx, valIdx []int) (*Booster, string, float64) {
	var withR int
	for i := range rows {
		if rows[i].R != nil {
			withR++
		}
	}

	need := int(math.Ceil(float64(len(rows)) * 0.1))
	if need < minEVRows {
		need = minEVRows
	}

	target := "pl"
	if withR >= need {
		target = "r"
	}

	value := func(i int) (float64, bool) {
		if target == "r" {
			if rows[i].R == nil {
				return 0, false
			}
			return *rows[i].R, true
		}
		return rows[i].PL, true
	}

	var Xt [][]float64
	var yt []float64
	for _, i := range trainIdx {
		if v, ok := value(i); ok {
			Xt = append(Xt, X[i])
			yt = append(yt, v)
		}
	}
	booster := TrainBooster(Xt, yt, ObjectiveRegression, t.params.Rounds, t.params.LearningRate)

	var mae float64
	var n int
	for _, i := range valIdx {
		if v, ok := value(i); ok {
			mae += math.Abs(booster.Predict(X[i]) - v)
			n++
		}
	}
	if n > 0 {
		mae /= float64(n)
	}

	return booster, target, mae
}

func (t *Trainer) trainHoldDays(rows []contracts.TrainRow, X [][]float64, heads []contracts.HeadSummary) (*Booster, []contracts.HeadSummary) {
	var Xs [][]float64
	var ys []float64
	for i := range rows {
		if rows[i].HoldDays != nil {
			Xs = append(Xs, X[i])
			ys = append(ys, *rows[i].HoldDays)
		}
	}
	if len(ys) < minHoldRows {
		return nil, append(heads, contracts.HeadSummary{
			Name: "hold_days", Trained: false,
			Reason: fmt.Sprintf("insufficient_rows:%d", len(ys)),
		})
	}
	booster := TrainBooster(Xs, ys, ObjectiveRegression, t.params.Rounds, t.params.LearningRate)
	return booster, append(heads, contracts.HeadSummary{Name: "hold_days", Trained: true})
}

func (t *Trainer) trainTouchFirst(rows []contracts.TrainRow, X [][]float64, heads []contracts.HeadSummary) (*MultiClass, []contracts.HeadSummary) {
	var Xs [][]float64
	var classIdx []int
	seen := make(map[int]struct{})
	for i := range rows {
		if rows[i].TouchFirst == nil {
			continue
		}
		k := contracts.TouchFirst(*rows[i].TouchFirst).ClassIndex()
		if k < 0 {
			continue
		}
		Xs = append(Xs, X[i])
		classIdx = append(classIdx, k)
		seen[k] = struct{}{}
	}
	if len(classIdx) < minTouchRows || len(seen) < 2 {
		return nil, append(heads, contracts.HeadSummary{
			Name: "touch_first", Trained: false,
			Reason: fmt.Sprintf("insufficient_rows:%d", len(classIdx)),
		})
	}

	classes := make([]string, len(contracts.TouchFirstClasses))
	for i, c := range contracts.TouchFirstClasses {
		classes[i] = string(c)
	}
	mc := TrainMultiClass(Xs, classIdx, classes, t.params.Rounds, t.params.LearningRate)
	return mc, append(heads, contracts.HeadSummary{Name: "touch_first", Trained: true})
}

func subset(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

func subsetF(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}

func evalBinary(b *Booster, X [][]float64, y []float64) (accuracy, logLoss float64) {
	if len(y) == 0 {
		return 0, 0
	}
	var correct int
	var ll float64
	for i := range y {
		p := clampProb(b.Predict(X[i]))
		if (p >= 0.5) == (y[i] >= 0.5) {
			correct++
		}
		ll += -(y[i]*math.Log(p) + (1-y[i])*math.Log(1-p))
	}
	return float64(correct) / float64(len(y)), ll / float64(len(y))
}
