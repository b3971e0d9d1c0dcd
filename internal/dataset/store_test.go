package dataset

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

func sampleRow(code, tradeDate, label string, pl float64) contracts.TrainRow {
	row := contracts.NewTrainRow()
	row.RunID = "20260803_093000"
	row.Code = code
	row.TradeDate = tradeDate
	row.RSI14 = 55.2
	row.ATRPct = 0.03
	row.SideID = 1
	row.Label = label
	row.PL = pl
	return row
}

func TestStore_MonthPartitionsAndLatestUnion(t *testing.T) {
	dir := t.TempDir()
	runDate := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)

	rows := []contracts.TrainRow{
		sampleRow("7203", "2026-07-30", "win", 300),
		sampleRow("6758", "2026-08-01", "lose", -150),
		sampleRow("4689", "2026-08-02", "win", 80),
		sampleRow("9984", "not-a-date", "flat", 0), // falls back to run month
	}

	store := NewStore(dir, &CSVStore{}, zerolog.Nop())
	partitions, latest, err := store.Write(rows, runDate)
	require.NoError(t, err)

	require.Len(t, partitions, 2)
	assert.Equal(t, filepath.Join(dir, "ml", "train", "2026_07", "train.csv"), partitions["2026_07"])
	assert.Equal(t, filepath.Join(dir, "ml", "train", "2026_08", "train.csv"), partitions["2026_08"])

	julyRows, _, err := Read(partitions["2026_07"])
	require.NoError(t, err)
	assert.Len(t, julyRows, 1)

	augustRows, _, err := Read(partitions["2026_08"])
	require.NoError(t, err)
	assert.Len(t, augustRows, 3)

	latestRows, _, err := Read(latest)
	require.NoError(t, err)
	assert.Len(t, latestRows, 4)
}

func TestStore_ProbePrefersColumnar(t *testing.T) {
	dir := t.TempDir()
	runDate := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	rows := []contracts.TrainRow{sampleRow("7203", "2026-08-01", "win", 300)}

	_, _, err := NewStore(dir, &CSVStore{}, zerolog.Nop()).Write(rows, runDate)
	require.NoError(t, err)

	path, err := ProbeLatest(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ml", "train", "latest_train.csv"), path)

	_, _, err = NewStore(dir, &ParquetStore{}, zerolog.Nop()).Write(rows, runDate)
	require.NoError(t, err)

	path, err = ProbeLatest(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ml", "train", "latest_train.parquet"), path)
}

func TestStore_FormatSwitchRemovesStaleArtifact(t *testing.T) {
	dir := t.TempDir()
	runDate := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	rows := []contracts.TrainRow{sampleRow("7203", "2026-08-01", "win", 300)}

	_, _, err := NewStore(dir, &ParquetStore{}, zerolog.Nop()).Write(rows, runDate)
	require.NoError(t, err)
	_, _, err = NewStore(dir, &CSVStore{}, zerolog.Nop()).Write(rows, runDate)
	require.NoError(t, err)

	// the parquet latest must be gone, or probing would resolve to a
	// stale snapshot
	assert.NoFileExists(t, filepath.Join(dir, "ml", "train", "latest_train.parquet"))

	path, err := ProbeLatest(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ml", "train", "latest_train.csv"), path)
}

func TestProbeLatest_EmptyDirErrors(t *testing.T) {
	_, err := ProbeLatest(t.TempDir())
	assert.Error(t, err)
}

func TestCSV_RoundTripOptionalFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.csv")

	full := sampleRow("7203", "2026-08-01", "win", 300)
	r := 0.6
	hd := 4.0
	tf := "tp_first"
	full.R = &r
	full.HoldDays = &hd
	full.TouchFirst = &tf

	bare := sampleRow("6758", "2026-08-02", "lose", -150)

	store := &CSVStore{}
	require.NoError(t, store.Write(path, []contracts.TrainRow{full, bare}))

	rows, cols, err := store.Read(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Contains(t, cols, "rsi14")
	assert.Contains(t, cols, "touch_first")

	got := rows[0]
	require.NotNil(t, got.R)
	assert.Equal(t, 0.6, *got.R)
	require.NotNil(t, got.HoldDays)
	assert.Equal(t, 4.0, *got.HoldDays)
	require.NotNil(t, got.TouchFirst)
	assert.Equal(t, "tp_first", *got.TouchFirst)

	assert.Nil(t, rows[1].R)
	assert.Nil(t, rows[1].HoldDays)
	assert.Nil(t, rows[1].TouchFirst)
}

func TestCSV_MissingFeatureSurvivesAsNaN(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.csv")

	row := sampleRow("7203", "2026-08-01", "win", 300)
	row.GapPct = math.NaN() // explicit for clarity; NewTrainRow already did this

	store := &CSVStore{}
	require.NoError(t, store.Write(path, []contracts.TrainRow{row}))

	rows, _, err := store.Read(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.True(t, math.IsNaN(rows[0].GapPct))
	assert.Equal(t, 55.2, rows[0].RSI14)
	assert.Equal(t, int32(1), rows[0].SideID)
}

func TestParquet_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.parquet")

	row := sampleRow("7203", "2026-08-01", "win", 300)
	r := 1.5
	row.R = &r

	store := &ParquetStore{}
	require.NoError(t, store.Write(path, []contracts.TrainRow{row}))

	rows, cols, err := store.Read(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NotEmpty(t, cols)

	assert.Equal(t, "7203", rows[0].Code)
	assert.Equal(t, "win", rows[0].Label)
	assert.Equal(t, float64(300), rows[0].PL)
	require.NotNil(t, rows[0].R)
	assert.Equal(t, 1.5, *rows[0].R)
}

func TestRead_UnknownExtension(t *testing.T) {
	_, _, err := Read("/tmp/train.xlsx")
	assert.Error(t, err)
}
