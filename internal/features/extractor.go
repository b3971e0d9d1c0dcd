package features

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/contracts"
)

// IDRegistry assigns stable integer ids to categorical values.
// Implemented by mlenc.Registry.
type IDRegistry interface {
	GetID(field, raw string) (int, error)
}

// Extractor builds supervised-learning rows from canonical behavior
// records. Label and realized PL are mandatory; r, hold_days and
// touch_first are optional targets that stay nil when not derivable.
type Extractor struct {
	registry IDRegistry
	log      zerolog.Logger
}

// NewExtractor creates an extractor backed by the given encoding registry.
func NewExtractor(registry IDRegistry, log zerolog.Logger) *Extractor {
	return &Extractor{
		registry: registry,
		log:      log.With().Str("component", "features.extractor").Logger(),
	}
}

// Options control row qualification.
type Options struct {
	RunID       string
	MinQty      float64
	IncludeLive bool
}

// Counters reports why records were excluded from the training set.
type Counters struct {
	Extracted      int `json:"extracted"`
	SkippedNoLabel int `json:"skipped_no_label"`
	SkippedNoPL    int `json:"skipped_no_pl"`
	SkippedMode    int `json:"skipped_mode"`
	SkippedMinQty  int `json:"skipped_min_qty"`
}

// Extract converts qualifying records into training rows.
func (e *Extractor) Extract(records []contracts.CanonicalBehaviorRecord, opt Options) ([]contracts.TrainRow, Counters, error) {
	var counters Counters
	rows := make([]contracts.TrainRow, 0, len(records))

	for i := range records {
		rec := &records[i]

		if rec.Mode == "live" && !opt.IncludeLive {
			counters.SkippedMode++
			continue
		}
		if rec.Qty < opt.MinQty {
			counters.SkippedMinQty++
			continue
		}
		// a trade with no trainable outcome cannot supervise a model
		if !contracts.ValidLabel(rec.EvalLabel) {
			counters.SkippedNoLabel++
			continue
		}
		if rec.EvalPL == nil {
			counters.SkippedNoPL++
			continue
		}

		row, err := e.buildRow(rec, opt)
		if err != nil {
			return nil, counters, err
		}
		rows = append(rows, row)
		counters.Extracted++
	}

	e.log.Info().
		Int("records", len(records)).
		Int("rows", counters.Extracted).
		Int("skipped_no_label", counters.SkippedNoLabel).
		Int("skipped_no_pl", counters.SkippedNoPL).
		Msg("extraction completed")

	return rows, counters, nil
}

func (e *Extractor) buildRow(rec *contracts.CanonicalBehaviorRecord, opt Options) (contracts.TrainRow, error) {
	row := contracts.NewTrainRow()
	row.RunID = opt.RunID
	row.Code = rec.Code
	row.TradeDate = rec.TradeDate()

	// numeric features come only from the decision-time snapshot; every
	// key passes the leakage gate before it can reach a column
	for k, v := range rec.FeatureSnapshot {
		name := strings.ToLower(strings.TrimSpace(k))
		if !AllowedFeatureName(name) {
			continue
		}
		row.SetFeatureValue(name, v)
	}

	// trade-design fields are decision-time by definition
	row.DesignRR = rec.DesignRR
	row.DesignRisk = rec.DesignRisk
	row.DesignReward = rec.DesignReward
	row.Score100 = rec.Score100
	if rec.Entry > 0 && rec.TP > 0 {
		row.TPPct = (rec.TP - rec.Entry) / rec.Entry
	}
	if rec.Entry > 0 && rec.SL > 0 {
		row.SLPct = (rec.Entry - rec.SL) / rec.Entry
	}

	for _, c := range []struct {
		field string
		raw   string
		dst   *int32
	}{
		{"side", rec.Side, &row.SideID},
		{"style", rec.Style, &row.StyleID},
		{"horizon", rec.Horizon, &row.HorizonID},
		{"sector", rec.Sector, &row.SectorID},
		{"universe", rec.Universe, &row.UniverseID},
		{"mode", rec.Mode, &row.ModeID},
	} {
		id, err := e.registry.GetID(c.field, c.raw)
		if err != nil {
			return row, fmt.Errorf("encode %s: %w", c.field, err)
		}
		*c.dst = int32(id)
	}

	row.Label = rec.EvalLabel
	row.PL = *rec.EvalPL

	if r := e.deriveR(rec); r != nil {
		row.R = r
	}
	if hd := deriveHoldDays(rec); hd != nil {
		row.HoldDays = hd
	}
	if tf := deriveTouchFirst(rec.EvalExitReason); tf != nil {
		s := string(*tf)
		row.TouchFirst = &s
	}

	return row, nil
}

// deriveR returns pl / risk_cash, where risk_cash is the entry-to-stop
// distance times quantity (design risk per share as fallback). Zero or
// negative risk means r is unknowable, not zero.
func (e *Extractor) deriveR(rec *contracts.CanonicalBehaviorRecord) *float64 {
	if rec.EvalR != nil {
		return rec.EvalR
	}
	if rec.EvalPL == nil {
		return nil
	}

	riskCash := math.Abs(rec.Entry-rec.SL) * rec.Qty
	if riskCash <= 0 {
		riskCash = rec.DesignRisk * rec.Qty
	}
	if riskCash <= 0 {
		return nil
	}

	r := *rec.EvalPL / riskCash
	return &r
}

// deriveHoldDays prefers the explicit field and falls back to the
// exit/entry timestamp difference, only when non-negative.
func deriveHoldDays(rec *contracts.CanonicalBehaviorRecord) *float64 {
	if rec.EvalHoldDays != nil {
		if *rec.EvalHoldDays < 0 {
			return nil
		}
		return rec.EvalHoldDays
	}
	if rec.EvalExitedAt == "" || rec.TS.IsZero() {
		return nil
	}
	exited := parseTS(rec.EvalExitedAt)
	if exited.IsZero() {
		return nil
	}
	days := exited.Sub(rec.TS).Hours() / 24
	if days < 0 {
		return nil
	}
	days = math.Round(days)
	return &days
}

// deriveTouchFirst maps the free-form exit reason onto the fixed enum.
// No exit reason means the target is unavailable (nil), not "none".
func deriveTouchFirst(reason string) *contracts.TouchFirst {
	if strings.TrimSpace(reason) == "" {
		return nil
	}
	var tf contracts.TouchFirst
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case "tp", "tp_hit", "take_profit", "profit_target":
		tf = contracts.TouchTPFirst
	case "sl", "sl_hit", "stop_loss", "loss_cut":
		tf = contracts.TouchSLFirst
	default:
		tf = contracts.TouchNone
	}
	return &tf
}

var tsLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTS(s string) time.Time {
	for _, layout := range tsLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
