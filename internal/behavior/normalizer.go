package behavior

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/contracts"
)

// Normalizer turns raw per-trade simulation logs into the canonical
// one-record-per-trade behavior stream: parse, gate on acceptance,
// drop zero-quantity lines, deduplicate first-seen-wins.
type Normalizer struct {
	variant string
	log     zerolog.Logger
}

// NewNormalizer creates a normalizer for the given canonical execution
// variant (normally "pro").
func NewNormalizer(variant string, log zerolog.Logger) *Normalizer {
	if variant == "" {
		variant = "pro"
	}
	return &Normalizer{
		variant: variant,
		log:     log.With().Str("component", "behavior.normalizer").Logger(),
	}
}

// Filter restricts which raw events enter the canonical stream.
type Filter struct {
	// RunDate anchors the lookback window. Zero means time.Now().
	RunDate time.Time
	// Days limits events to ts >= RunDate-Days. Zero disables the window.
	Days int
	// UserID keeps only one user's events when non-empty.
	UserID string
}

// Normalize reads every event-log file under eventsDir and returns the
// deduplicated record set in deterministic order (file name order, then
// line order, which is also the dedup tie-break).
//
// A missing eventsDir is a setup error and aborts; a malformed line is a
// data-quality problem and only increments a counter.
func (n *Normalizer) Normalize(ctx context.Context, eventsDir string, f Filter) ([]contracts.CanonicalBehaviorRecord, contracts.NormalizeCounters, error) {
	var counters contracts.NormalizeCounters

	entries, err := os.ReadDir(eventsDir)
	if err != nil {
		return nil, counters, fmt.Errorf("read events dir %s: %w", eventsDir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".jsonl") || strings.HasSuffix(name, ".log") || strings.HasSuffix(name, ".json") {
			files = append(files, filepath.Join(eventsDir, name))
		}
	}
	sort.Strings(files)

	runDate := f.RunDate
	if runDate.IsZero() {
		runDate = time.Now()
	}
	var cutoff time.Time
	if f.Days > 0 {
		cutoff = runDate.AddDate(0, 0, -f.Days)
	}

	seen := make(map[string]struct{})
	var records []contracts.CanonicalBehaviorRecord

	for _, path := range files {
		select {
		case <-ctx.Done():
			return records, counters, ctx.Err()
		default:
		}

		if err := n.scanFile(path, cutoff, f.UserID, seen, &records, &counters); err != nil {
			// one unreadable file does not abort the batch
			n.log.Warn().Err(err).Str("file", path).Msg("failed to scan event file")
		}
	}

	counters.Kept = len(records)
	n.log.Info().
		Int("files", len(files)).
		Int("scanned", counters.Scanned).
		Int("kept", counters.Kept).
		Int("skipped_not_accepted", counters.SkippedNotAccepted).
		Int("skipped_qty0", counters.SkippedQty0).
		Int("skipped_dup", counters.SkippedDup).
		Msg("normalization completed")

	return records, counters, nil
}

func (n *Normalizer) scanFile(path string, cutoff time.Time, userID string, seen map[string]struct{}, records *[]contracts.CanonicalBehaviorRecord, counters *contracts.NormalizeCounters) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		counters.Scanned++

		var raw map[string]any
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			counters.SkippedParse++
			continue
		}

		rec, status := n.project(raw)
		switch status {
		case projectNotAccepted:
			counters.SkippedNotAccepted++
			continue
		case projectQtyZero:
			counters.SkippedQty0++
			continue
		}

		if userID != "" && rec.UserID != userID {
			counters.SkippedFilter++
			continue
		}
		if !cutoff.IsZero() && !rec.TS.IsZero() && rec.TS.Before(cutoff) {
			counters.SkippedFilter++
			continue
		}

		key := rec.DedupKey()
		if _, dup := seen[key]; dup {
			counters.SkippedDup++
			continue
		}
		seen[key] = struct{}{}
		*records = append(*records, rec)
	}

	return scanner.Err()
}

type projectStatus int

const (
	projectOK projectStatus = iota
	projectNotAccepted
	projectQtyZero
)

// project maps one raw event onto the canonical single-variant record.
func (n *Normalizer) project(raw map[string]any) (contracts.CanonicalBehaviorRecord, projectStatus) {
	rec := contracts.CanonicalBehaviorRecord{
		UserID:   asString(raw["user_id"]),
		Mode:     asString(raw["mode"]),
		Code:     asString(raw["code"]),
		Side:     asString(raw["side"]),
		Style:    asString(raw["style"]),
		Horizon:  asString(raw["horizon"]),
		Sector:   asString(raw["sector"]),
		Universe: asString(raw["universe"]),
	}

	rec.TS = parseTS(asString(raw["ts"]))

	rec.PriceDate = asString(raw["price_date"])
	if rec.PriceDate == "" {
		rec.PriceDate = asString(raw["trade_date"])
	}

	// acceptance gate: replay.<variant>.status, legacy top-level status
	if !n.accepted(raw) {
		return rec, projectNotAccepted
	}

	qty, ok := asFloat(raw["qty_"+n.variant])
	if !ok {
		qty, _ = asFloat(raw["qty"])
	}
	if qty <= 0 {
		return rec, projectQtyZero
	}
	rec.Qty = qty

	rec.Entry, _ = asFloat(raw["entry"])
	rec.TP, _ = asFloat(raw["tp"])
	rec.SL, _ = asFloat(raw["sl"])
	rec.Score100, _ = asFloat(raw["score_100"])
	rec.DesignRR, _ = asFloat(raw["design_rr"])
	rec.DesignRisk, _ = asFloat(raw["design_risk"])
	rec.DesignReward, _ = asFloat(raw["design_reward"])

	if snap, ok := raw["feature_snapshot"].(map[string]any); ok {
		rec.FeatureSnapshot = make(map[string]float64, len(snap))
		for k, v := range snap {
			if fv, ok := asFloat(v); ok {
				rec.FeatureSnapshot[k] = fv
			}
		}
	}

	// realized outcome: combined field first, then the variant line
	rec.EvalLabel = asString(raw["eval_label"])
	if rec.EvalLabel == "" {
		rec.EvalLabel = asString(raw["eval_label_"+n.variant])
	}
	rec.EvalPL = combinedPL(raw)
	if v, ok := asFloat(raw["eval_r"]); ok {
		rec.EvalR = &v
	} else if v, ok := asFloat(raw["eval_r_"+n.variant]); ok {
		rec.EvalR = &v
	}
	if v, ok := asFloat(raw["eval_hold_days"]); ok {
		rec.EvalHoldDays = &v
	}
	rec.EvalExitReason = asString(raw["eval_exit_reason"])
	if rec.EvalExitReason == "" {
		rec.EvalExitReason = asString(raw["eval_exit_reason_"+n.variant])
	}
	rec.EvalExitedAt = asString(raw["eval_exited_at"])

	return rec, projectOK
}

// accepted checks replay.<variant>.status == "accepted", with the legacy
// top-level status field as fallback for pre-replay logs.
func (n *Normalizer) accepted(raw map[string]any) bool {
	if replay, ok := raw["replay"].(map[string]any); ok {
		if variant, ok := replay[n.variant].(map[string]any); ok {
			return asString(variant["status"]) == "accepted"
		}
	}
	if s := asString(raw["status"]); s != "" {
		return s == "accepted"
	}
	return false
}

// combinedPL prefers the combined eval_pl and falls back to summing every
// per-variant eval_pl_* field present.
func combinedPL(raw map[string]any) *float64 {
	if v, ok := asFloat(raw["eval_pl"]); ok {
		return &v
	}
	var sum float64
	var found bool
	for k, v := range raw {
		if !strings.HasPrefix(k, "eval_pl_") {
			continue
		}
		if fv, ok := asFloat(v); ok {
			sum += fv
			found = true
		}
	}
	if !found {
		return nil
	}
	return &sum
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		// tolerate numeric strings from older loggers
		var f float64
		if _, err := fmt.Sscanf(t, "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
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
