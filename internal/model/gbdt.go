package model

import (
	"encoding/json"
	"math"
	"sort"
)

// Booster is a gradient-boosted ensemble of depth-1 regression trees.
// Small, dependency-free and fully serializable: the tabular datasets
// this pipeline produces are a few thousand rows with ~20 columns, well
// inside what boosted stumps handle.
//
// Objectives: "regression" (squared loss, raw output) and "binary"
// (logistic, Predict returns a probability).
type Booster struct {
	Objective    string  `json:"objective"`
	Bias         float64 `json:"bias"`
	LearningRate float64 `json:"learning_rate"`
	Stumps       []Stump `json:"stumps"`
	NumFeatures  int     `json:"num_features"`
}

// Stump is one split: rows with feature < Threshold go left, the rest
// right. Missing values (NaN) follow the learned default direction.
type Stump struct {
	Feature     int     `json:"feature"`
	Threshold   float64 `json:"threshold"`
	MissingLeft bool    `json:"missing_left"`
	Left        float64 `json:"left"`
	Right       float64 `json:"right"`
}

const (
	ObjectiveRegression = "regression"
	ObjectiveBinary     = "binary"
)

// maxThresholdCandidates bounds the split search per feature.
const maxThresholdCandidates = 16

// TrainBooster fits a booster on X (rows of feature vectors, NaN =
// missing) against target y. For the binary objective y must be 0/1.
func TrainBooster(X [][]float64, y []float64, objective string, rounds int, learningRate float64) *Booster {
	b := &Booster{
		Objective:    objective,
		LearningRate: learningRate,
	}
	if len(X) == 0 || len(y) != len(X) {
		return b
	}
	b.NumFeatures = len(X[0])

	switch objective {
	case ObjectiveBinary:
		b.Bias = logit(clampProb(mean(y)))
	default:
		b.Bias = mean(y)
	}

	// raw score per row, updated as stumps are added
	raw := make([]float64, len(y))
	for i := range raw {
		raw[i] = b.Bias
	}

	grad := make([]float64, len(y))
	for round := 0; round < rounds; round++ {
		// pseudo-residuals of the loss at the current raw scores
		for i := range y {
			if objective == ObjectiveBinary {
				grad[i] = y[i] - sigmoid(raw[i])
			} else {
				grad[i] = y[i] - raw[i]
			}
		}

		stump, ok := fitStump(X, grad)
		if !ok {
			break
		}

		stump.Left *= learningRate
		stump.Right *= learningRate
		b.Stumps = append(b.Stumps, stump)

		for i := range raw {
			raw[i] += stump.eval(X[i])
		}
	}

	return b
}

// Predict returns the model output for one feature vector: a raw value
// for regression, a probability for the binary objective.
func (b *Booster) Predict(x []float64) float64 {
	raw := b.Bias
	for _, s := range b.Stumps {
		raw += s.eval(x)
	}
	if b.Objective == ObjectiveBinary {
		return sigmoid(raw)
	}
	return raw
}

// Marshal serializes the booster for snapshot storage.
func (b *Booster) Marshal() ([]byte, error) {
	return json.MarshalIndent(b, "", " ")
}

// UnmarshalBooster loads a booster from its snapshot file.
func UnmarshalBooster(data []byte) (*Booster, error) {
	var b Booster
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Stump) eval(x []float64) float64 {
	if s.Feature >= len(x) {
		if s.MissingLeft {
			return s.Left
		}
		return s.Right
	}
	v := x[s.Feature]
	if math.IsNaN(v) {
		if s.MissingLeft {
			return s.Left
		}
		return s.Right
	}
	if v < s.Threshold {
		return s.Left
	}
	return s.Right
}

// fitStump finds the single split minimizing squared error against the
// target, trying both default directions for missing values.
func fitStump(X [][]float64, target []float64) (Stump, bool) {
	if len(X) == 0 {
		return Stump{}, false
	}
	numFeatures := len(X[0])

	best := Stump{}
	bestGain := 1e-12
	baseSSE := sseAroundMean(target)

	for f := 0; f < numFeatures; f++ {
		thresholds := candidateThresholds(X, f)
		if len(thresholds) == 0 {
			continue
		}

		for _, th := range thresholds {
			for _, missingLeft := range []bool{true, false} {
				var sumL, sumR float64
				var nL, nR int
				for i := range X {
					if goesLeft(X[i], f, th, missingLeft) {
						sumL += target[i]
						nL++
					} else {
						sumR += target[i]
						nR++
					}
				}
				if nL == 0 || nR == 0 {
					continue
				}
				meanL := sumL / float64(nL)
				meanR := sumR / float64(nR)

				var sse float64
				for i := range X {
					var d float64
					if goesLeft(X[i], f, th, missingLeft) {
						d = target[i] - meanL
					} else {
						d = target[i] - meanR
					}
					sse += d * d
				}

				gain := baseSSE - sse
				if gain > bestGain {
					bestGain = gain
					best = Stump{
						Feature:     f,
						Threshold:   th,
						MissingLeft: missingLeft,
						Left:        meanL,
						Right:       meanR,
					}
				}
			}
		}
	}

	if bestGain <= 1e-12 {
		return Stump{}, false
	}
	return best, true
}

func goesLeft(x []float64, feature int, threshold float64, missingLeft bool) bool {
	v := x[feature]
	if math.IsNaN(v) {
		return missingLeft
	}
	return v < threshold
}

// candidateThresholds returns up to maxThresholdCandidates midpoints over
// the sorted non-missing values of one feature.
func candidateThresholds(X [][]float64, feature int) []float64 {
	values := make([]float64, 0, len(X))
	for i := range X {
		v := X[i][feature]
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	if len(values) < 2 {
		return nil
	}
	sort.Float64s(values)

	unique := values[:1]
	for _, v := range values[1:] {
		if v != unique[len(unique)-1] {
			unique = append(unique, v)
		}
	}
	if len(unique) < 2 {
		return nil
	}

	step := 1
	if len(unique) > maxThresholdCandidates {
		step = len(unique) / maxThresholdCandidates
	}
	var out []float64
	for i := step; i < len(unique); i += step {
		out = append(out, (unique[i-1]+unique[i])/2)
	}
	return out
}

func sseAroundMean(target []float64) float64 {
	m := mean(target)
	var sse float64
	for _, t := range target {
		d := t - m
		sse += d * d
	}
	return sse
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

func clampProb(p float64) float64 {
	if p < 1e-4 {
		return 1e-4
	}
	if p > 1-1e-4 {
		return 1 - 1e-4
	}
	return p
}

// MultiClass is a one-vs-rest stack of binary boosters whose outputs are
// normalized into class probabilities. Class order is fixed by the
// caller and persisted with the model.
type MultiClass struct {
	Classes  []string   `json:"classes"`
	Boosters []*Booster `json:"boosters"`
}

// TrainMultiClass fits one binary booster per class.
func TrainMultiClass(X [][]float64, classIdx []int, classes []string, rounds int, learningRate float64) *MultiClass {
	mc := &MultiClass{Classes: classes}
	for c := range classes {
		y := make([]float64, len(classIdx))
		for i, k := range classIdx {
			if k == c {
				y[i] = 1
			}
		}
		mc.Boosters = append(mc.Boosters, TrainBooster(X, y, ObjectiveBinary, rounds, learningRate))
	}
	return mc
}

// PredictProba returns normalized class probabilities in class order.
func (m *MultiClass) PredictProba(x []float64) []float64 {
	probs := make([]float64, len(m.Boosters))
	var sum float64
	for i, b := range m.Boosters {
		probs[i] = b.Predict(x)
		sum += probs[i]
	}
	if sum > 0 {
		for i := range probs {
			probs[i] /= sum
		}
	}
	return probs
}

// Marshal serializes the multi-class model.
func (m *MultiClass) Marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", " ")
}

// UnmarshalMultiClass loads a multi-class model from its snapshot file.
func UnmarshalMultiClass(data []byte) (*MultiClass, error) {
	var m MultiClass
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
