package contracts

import "math"

// Label is the 3-way trade outcome used as the primary classification target.
type Label string

const (
	LabelWin  Label = "win"
	LabelLose Label = "lose"
	LabelFlat Label = "flat"
)

// ValidLabel reports whether s is a trainable outcome label.
// Anything else ("mixed", "", "pending", ...) excludes the row.
func ValidLabel(s string) bool {
	switch Label(s) {
	case LabelWin, LabelLose, LabelFlat:
		return true
	}
	return false
}

// TouchFirst records which price boundary was crossed first during the
// trade's life. Class-index convention is fixed: 0=none, 1=tp_first,
// 2=sl_first. Model files and inference both rely on this order.
type TouchFirst string

const (
	TouchNone    TouchFirst = "none"
	TouchTPFirst TouchFirst = "tp_first"
	TouchSLFirst TouchFirst = "sl_first"
)

// TouchFirstClasses lists the classes in index order.
var TouchFirstClasses = []TouchFirst{TouchNone, TouchTPFirst, TouchSLFirst}

// ClassIndex returns the fixed class index for t, or -1 when unknown.
func (t TouchFirst) ClassIndex() int {
	for i, c := range TouchFirstClasses {
		if c == t {
			return i
		}
	}
	return -1
}

// TrainRow is one supervised-learning sample: identity, a fixed-shape
// feature vector X, and the label set y. Missing numeric features are NaN
// in memory (empty cell in CSV); missing optional labels are nil.
type TrainRow struct {
	RunID     string `parquet:"run_id" json:"run_id"`
	Code      string `parquet:"code" json:"code"`
	TradeDate string `parquet:"trade_date" json:"trade_date"`

	// X: technical snapshot (decision-time indicator values)
	RSI14        float64 `parquet:"rsi14" json:"rsi14"`
	SMA5Dev      float64 `parquet:"sma5_dev" json:"sma5_dev"`
	SMA25Dev     float64 `parquet:"sma25_dev" json:"sma25_dev"`
	SMA75Dev     float64 `parquet:"sma75_dev" json:"sma75_dev"`
	ATR14        float64 `parquet:"atr14" json:"atr14"`
	ATRPct       float64 `parquet:"atr_pct" json:"atr_pct"`
	VolMA5Ratio  float64 `parquet:"vol_ma5_ratio" json:"vol_ma5_ratio"`
	High52WPos   float64 `parquet:"high52w_pos" json:"high52w_pos"`
	GapPct       float64 `parquet:"gap_pct" json:"gap_pct"`
	Volatility20 float64 `parquet:"volatility20" json:"volatility20"`
	MACDHist     float64 `parquet:"macd_hist" json:"macd_hist"`

	// X: trade design (also decision-time)
	DesignRR     float64 `parquet:"design_rr" json:"design_rr"`
	DesignRisk   float64 `parquet:"design_risk" json:"design_risk"`
	DesignReward float64 `parquet:"design_reward" json:"design_reward"`
	Score100     float64 `parquet:"score_100" json:"score_100"`
	TPPct        float64 `parquet:"tp_pct" json:"tp_pct"`
	SLPct        float64 `parquet:"sl_pct" json:"sl_pct"`

	// X: stable categorical ids (0 = unknown/missing)
	SideID     int32 `parquet:"side_id" json:"side_id"`
	StyleID    int32 `parquet:"style_id" json:"style_id"`
	HorizonID  int32 `parquet:"horizon_id" json:"horizon_id"`
	SectorID   int32 `parquet:"sector_id" json:"sector_id"`
	UniverseID int32 `parquet:"universe_id" json:"universe_id"`
	ModeID     int32 `parquet:"mode_id" json:"mode_id"`

	// y
	Label      string   `parquet:"label" json:"label"`
	PL         float64  `parquet:"pl" json:"pl"`
	R          *float64 `parquet:"r,optional" json:"r,omitempty"`
	HoldDays   *float64 `parquet:"hold_days,optional" json:"hold_days,omitempty"`
	TouchFirst *string  `parquet:"touch_first,optional" json:"touch_first,omitempty"`
}

// NewTrainRow returns a row with every numeric feature set to NaN so that
// "never populated" and "zero" stay distinguishable.
func NewTrainRow() TrainRow {
	nan := math.NaN()
	return TrainRow{
		RSI14: nan, SMA5Dev: nan, SMA25Dev: nan, SMA75Dev: nan,
		ATR14: nan, ATRPct: nan, VolMA5Ratio: nan, High52WPos: nan,
		GapPct: nan, Volatility20: nan, MACDHist: nan,
		DesignRR: nan, DesignRisk: nan, DesignReward: nan,
		Score100: nan, TPPct: nan, SLPct: nan,
	}
}

// NumericFeatureColumns is the ordered allow-list of continuous feature
// columns. Column selection at train time starts from this list; anything
// not on it never reaches the model.
var NumericFeatureColumns = []string{
	"rsi14", "sma5_dev", "sma25_dev", "sma75_dev",
	"atr14", "atr_pct", "vol_ma5_ratio", "high52w_pos",
	"gap_pct", "volatility20", "macd_hist",
	"design_rr", "design_risk", "design_reward",
	"score_100", "tp_pct", "sl_pct",
}

// CategoricalIDColumns is the ordered allow-list of integer-coded
// categorical columns.
var CategoricalIDColumns = []string{
	"side_id", "style_id", "horizon_id", "sector_id", "universe_id", "mode_id",
}

// FeatureColumns returns the full ordered feature allow-list
// (numeric first, then categorical ids).
func FeatureColumns() []string {
	cols := make([]string, 0, len(NumericFeatureColumns)+len(CategoricalIDColumns))
	cols = append(cols, NumericFeatureColumns...)
	cols = append(cols, CategoricalIDColumns...)
	return cols
}

// FeatureValue returns the value of a feature column by name.
// Categorical ids come back as float64 for matrix assembly.
func (r *TrainRow) FeatureValue(col string) (float64, bool) {
	switch col {
	case "rsi14":
		return r.RSI14, true
	case "sma5_dev":
		return r.SMA5Dev, true
	case "sma25_dev":
		return r.SMA25Dev, true
	case "sma75_dev":
		return r.SMA75Dev, true
	case "atr14":
		return r.ATR14, true
	case "atr_pct":
		return r.ATRPct, true
	case "vol_ma5_ratio":
		return r.VolMA5Ratio, true
	case "high52w_pos":
		return r.High52WPos, true
	case "gap_pct":
		return r.GapPct, true
	case "volatility20":
		return r.Volatility20, true
	case "macd_hist":
		return r.MACDHist, true
	case "design_rr":
		return r.DesignRR, true
	case "design_risk":
		return r.DesignRisk, true
	case "design_reward":
		return r.DesignReward, true
	case "score_100":
		return r.Score100, true
	case "tp_pct":
		return r.TPPct, true
	case "sl_pct":
		return r.SLPct, true
	case "side_id":
		return float64(r.SideID), true
	case "style_id":
		return float64(r.StyleID), true
	case "horizon_id":
		return float64(r.HorizonID), true
	case "sector_id":
		return float64(r.SectorID), true
	case "universe_id":
		return float64(r.UniverseID), true
	case "mode_id":
		return float64(r.ModeID), true
	}
	return 0, false
}

// SetFeatureValue sets a feature column by name. Categorical ids are
// coerced to non-negative integers (missing/negative becomes 0).
func (r *TrainRow) SetFeatureValue(col string, v float64) bool {
	setID := func(dst *int32) bool {
		if math.IsNaN(v) || v < 0 {
			*dst = 0
			return true
		}
		*dst = int32(v)
		return true
	}
	switch col {
	case "rsi14":
		r.RSI14 = v
	case "sma5_dev":
		r.SMA5Dev = v
	case "sma25_dev":
		r.SMA25Dev = v
	case "sma75_dev":
		r.SMA75Dev = v
	case "atr14":
		r.ATR14 = v
	case "atr_pct":
		r.ATRPct = v
	case "vol_ma5_ratio":
		r.VolMA5Ratio = v
	case "high52w_pos":
		r.High52WPos = v
	case "gap_pct":
		r.GapPct = v
	case "volatility20":
		r.Volatility20 = v
	case "macd_hist":
		r.MACDHist = v
	case "design_rr":
		r.DesignRR = v
	case "design_risk":
		r.DesignRisk = v
	case "design_reward":
		r.DesignReward = v
	case "score_100":
		r.Score100 = v
	case "tp_pct":
		r.TPPct = v
	case "sl_pct":
		r.SLPct = v
	case "side_id":
		return setID(&r.SideID)
	case "style_id":
		return setID(&r.StyleID)
	case "horizon_id":
		return setID(&r.HorizonID)
	case "sector_id":
		return setID(&r.SectorID)
	case "universe_id":
		return setID(&r.UniverseID)
	case "mode_id":
		return setID(&r.ModeID)
	default:
		return false
	}
	return true
}
