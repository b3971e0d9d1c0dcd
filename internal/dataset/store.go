package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/contracts"
)

// RowWriter persists training rows in one on-disk format.
// Two implementations exist: parquet (columnar, preferred) and CSV
// (row-oriented fallback). Selection happens at runtime, never by build
// tags, so both paths stay compiled and tested.
type RowWriter interface {
	Ext() string
	Write(path string, rows []contracts.TrainRow) error
}

// RowReader loads training rows back, reporting which columns were
// actually present in the artifact (CSV files written by older schemas
// may carry fewer columns).
type RowReader interface {
	Read(path string) ([]contracts.TrainRow, []string, error)
}

// SelectWriter picks the columnar writer unless the caller forces the
// row-oriented format.
func SelectWriter(forceRowFormat bool) RowWriter {
	if forceRowFormat {
		return &CSVStore{}
	}
	return &ParquetStore{}
}

// Store partitions training rows by calendar month and maintains the
// latest full-snapshot artifact.
type Store struct {
	dir    string
	writer RowWriter
	log    zerolog.Logger
}

// NewStore creates a store rooted at <dataDir>/ml/train.
func NewStore(dataDir string, writer RowWriter, log zerolog.Logger) *Store {
	return &Store{
		dir:    filepath.Join(dataDir, "ml", "train"),
		writer: writer,
		log:    log.With().Str("component", "dataset.store").Logger(),
	}
}

// Write overwrites one partition file per month touched by rows, then
// writes the full union to latest_train.<ext>. Returns the partition
// paths keyed by month and the latest path.
func (s *Store) Write(rows []contracts.TrainRow, runDate time.Time) (map[string]string, string, error) {
	byMonth := make(map[string][]contracts.TrainRow)
	for _, row := range rows {
		key := monthKey(row.TradeDate, runDate)
		byMonth[key] = append(byMonth[key], row)
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	partitions := make(map[string]string, len(byMonth))
	for _, month := range months {
		dir := filepath.Join(s.dir, month)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, "", fmt.Errorf("create partition dir: %w", err)
		}
		path := filepath.Join(dir, "train."+s.writer.Ext())
		if err := s.writeOne(path, byMonth[month]); err != nil {
			return nil, "", fmt.Errorf("write partition %s: %w", month, err)
		}
		partitions[month] = path
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create train dir: %w", err)
	}
	latest := filepath.Join(s.dir, "latest_train."+s.writer.Ext())
	if err := s.writeOne(latest, rows); err != nil {
		return nil, "", fmt.Errorf("write latest dataset: %w", err)
	}

	s.log.Info().
		Int("rows", len(rows)).
		Int("months", len(partitions)).
		Str("format", s.writer.Ext()).
		Str("latest", latest).
		Msg("dataset written")

	return partitions, latest, nil
}

// writeOne writes rows to path and removes the same artifact in the
// other format, so downstream probing never finds two answers.
func (s *Store) writeOne(path string, rows []contracts.TrainRow) error {
	if err := s.writer.Write(path, rows); err != nil {
		return err
	}
	for _, ext := range []string{"parquet", "csv"} {
		if ext == s.writer.Ext() {
			continue
		}
		stale := strings.TrimSuffix(path, "."+s.writer.Ext()) + "." + ext
		if _, err := os.Stat(stale); err == nil {
			os.Remove(stale)
		}
	}
	return nil
}

// monthKey derives the YYYY_MM partition key from trade_date, falling
// back to the run date when trade_date does not parse.
func monthKey(tradeDate string, runDate time.Time) string {
	if t, err := time.Parse("2006-01-02", tradeDate); err == nil {
		return t.Format("2006_01")
	}
	return runDate.Format("2006_01")
}

// ProbeLatest locates the latest full dataset: columnar artifact first,
// row-oriented second.
func ProbeLatest(dataDir string) (string, error) {
	dir := filepath.Join(dataDir, "ml", "train")
	for _, ext := range []string{"parquet", "csv"} {
		path := filepath.Join(dir, "latest_train."+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no dataset found under %s", dir)
}

// Read loads any dataset artifact, dispatching on extension.
func Read(path string) ([]contracts.TrainRow, []string, error) {
	switch filepath.Ext(path) {
	case ".parquet":
		return (&ParquetStore{}).Read(path)
	case ".csv":
		return (&CSVStore{}).Read(path)
	}
	return nil, nil, fmt.Errorf("unsupported dataset format: %s", path)
}
