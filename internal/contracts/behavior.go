package contracts

import (
	"fmt"
	"math"
	"time"
)

// CanonicalBehaviorRecord is the deduplicated, single-variant projection of
// one raw simulated-trade event. One record per trade decision.
type CanonicalBehaviorRecord struct {
	UserID string    `json:"user_id"`
	TS     time.Time `json:"ts"`
	Mode   string    `json:"mode"` // live, demo, ...
	Code   string    `json:"code"`

	// PriceDate is the trading date the decision priced against
	// (falls back to the event's trade date when absent in the source).
	PriceDate string `json:"price_date"`

	Entry float64 `json:"entry"`
	TP    float64 `json:"tp"`
	SL    float64 `json:"sl"`
	Qty   float64 `json:"qty"`

	Side     string `json:"side"`
	Style    string `json:"style"`
	Horizon  string `json:"horizon"`
	Sector   string `json:"sector"`
	Universe string `json:"universe"`

	Score100     float64 `json:"score_100"`
	DesignRR     float64 `json:"design_rr"`
	DesignRisk   float64 `json:"design_risk"`
	DesignReward float64 `json:"design_reward"`

	// FeatureSnapshot holds indicator values frozen at decision time.
	// This is the only place numeric model features may come from.
	FeatureSnapshot map[string]float64 `json:"feature_snapshot"`

	// Realized outcome, once known. Nil/empty until evaluated.
	EvalLabel      string   `json:"eval_label,omitempty"`
	EvalPL         *float64 `json:"eval_pl,omitempty"`
	EvalR          *float64 `json:"eval_r,omitempty"`
	EvalHoldDays   *float64 `json:"eval_hold_days,omitempty"`
	EvalExitReason string   `json:"eval_exit_reason,omitempty"`
	EvalExitedAt   string   `json:"eval_exited_at,omitempty"`
}

// DedupKey returns the identity under which at most one record may exist.
// Entry price rounds to 3 decimals, quantity to whole units. The quantity
// rounding is coarser than the price rounding on purpose; it mirrors the
// upstream logger, so sub-unit quantity differences collapse.
func (r *CanonicalBehaviorRecord) DedupKey() string {
	entry := math.Round(r.Entry*1000) / 1000
	qty := math.Round(r.Qty)
	return fmt.Sprintf("%s|%s|%s|%s|%.3f|%.0f", r.UserID, r.Mode, r.Code, r.PriceDate, entry, qty)
}

// TradeDate returns the best-effort trading date for partitioning.
func (r *CanonicalBehaviorRecord) TradeDate() string {
	if r.PriceDate != "" {
		return r.PriceDate
	}
	if !r.TS.IsZero() {
		return r.TS.Format("2006-01-02")
	}
	return ""
}

// NormalizeCounters reports what the normalizer did with the raw stream.
// Surfaced verbatim in the run summary so operators can tell "no signal
// today" from "pipeline broken".
type NormalizeCounters struct {
	Scanned            int `json:"scanned"`
	Kept               int `json:"kept"`
	SkippedParse       int `json:"skipped_parse"`
	SkippedNotAccepted int `json:"skipped_not_accepted"`
	SkippedQty0        int `json:"skipped_qty0"`
	SkippedDup         int `json:"skipped_dup"`
	SkippedFilter      int `json:"skipped_filter"`
}
