package behavior

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/contracts"
)

// Writer persists the canonical behavior stream: one dated file per run
// plus the latest_behavior.jsonl pointer consumed downstream. Both are
// full overwrites, never appends.
type Writer struct {
	dir string
	log zerolog.Logger
}

// NewWriter creates a writer rooted at <dataDir>/behavior.
func NewWriter(dataDir string, log zerolog.Logger) *Writer {
	return &Writer{
		dir: filepath.Join(dataDir, "behavior"),
		log: log.With().Str("component", "behavior.writer").Logger(),
	}
}

// Write persists records and returns the dated path and the latest path.
// The latest pointer is published via temp-file + rename so a concurrent
// reader never sees a half-written stream.
func (w *Writer) Write(records []contracts.CanonicalBehaviorRecord, runDate time.Time) (string, string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create behavior dir: %w", err)
	}

	data, err := encodeJSONL(records)
	if err != nil {
		return "", "", err
	}

	datedPath := filepath.Join(w.dir, fmt.Sprintf("behavior_%s.jsonl", runDate.Format("20060102")))
	if err := writeAtomic(datedPath, data); err != nil {
		return "", "", fmt.Errorf("write dated behavior file: %w", err)
	}

	latestPath := filepath.Join(w.dir, "latest_behavior.jsonl")
	if err := writeAtomic(latestPath, data); err != nil {
		return "", "", fmt.Errorf("write latest behavior file: %w", err)
	}

	w.log.Info().
		Int("records", len(records)).
		Str("dated", datedPath).
		Str("latest", latestPath).
		Msg("canonical stream written")

	return datedPath, latestPath, nil
}

func encodeJSONL(records []contracts.CanonicalBehaviorRecord) ([]byte, error) {
	var buf []byte
	for i := range records {
		line, err := json.Marshal(&records[i])
		if err != nil {
			return nil, fmt.Errorf("marshal behavior record: %w", err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	return buf, nil
}

// writeAtomic writes to a temp file in the same directory and renames it
// into place.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
