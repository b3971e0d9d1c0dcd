package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/contracts"
)

// CSVStore is the row-oriented fallback format. Missing numerics and nil
// optional labels are written as empty cells.
type CSVStore struct{}

// Ext returns the artifact extension.
func (c *CSVStore) Ext() string { return "csv" }

// Write persists rows via temp-file + rename.
func (c *CSVStore) Write(path string, rows []contracts.TrainRow) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}

	w := csv.NewWriter(f)
	header := allColumns()
	if err := w.Write(header); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write csv header: %w", err)
	}

	for i := range rows {
		if err := w.Write(encodeRecord(&rows[i], header)); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish csv: %w", err)
	}
	return nil
}

// Read loads a CSV dataset, intersecting against whatever columns the
// header declares.
func (c *CSVStore) Read(path string) ([]contracts.TrainRow, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open csv %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("csv %s has no header", path)
	}

	header := records[0]
	rows := make([]contracts.TrainRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := contracts.NewTrainRow()
		for i, col := range header {
			if i >= len(rec) {
				break
			}
			decodeCell(&row, col, rec[i])
		}
		rows = append(rows, row)
	}

	return rows, header, nil
}

func encodeRecord(row *contracts.TrainRow, header []string) []string {
	out := make([]string, len(header))
	for i, col := range header {
		out[i] = encodeCell(row, col)
	}
	return out
}

func encodeCell(row *contracts.TrainRow, col string) string {
	switch col {
	case "run_id":
		return row.RunID
	case "code":
		return row.Code
	case "trade_date":
		return row.TradeDate
	case "label":
		return row.Label
	case "pl":
		return formatFloat(row.PL)
	case "r":
		return formatOptFloat(row.R)
	case "hold_days":
		return formatOptFloat(row.HoldDays)
	case "touch_first":
		if row.TouchFirst == nil {
			return ""
		}
		return *row.TouchFirst
	}
	if v, ok := row.FeatureValue(col); ok {
		return formatFloat(v)
	}
	return ""
}

func decodeCell(row *contracts.TrainRow, col, cell string) {
	switch col {
	case "run_id":
		row.RunID = cell
		return
	case "code":
		row.Code = cell
		return
	case "trade_date":
		row.TradeDate = cell
		return
	case "label":
		row.Label = cell
		return
	case "pl":
		if v, err := strconv.ParseFloat(cell, 64); err == nil {
			row.PL = v
		}
		return
	case "r":
		row.R = parseOptFloat(cell)
		return
	case "hold_days":
		row.HoldDays = parseOptFloat(cell)
		return
	case "touch_first":
		if cell != "" {
			s := cell
			row.TouchFirst = &s
		}
		return
	}
	if cell == "" {
		return // feature stays NaN
	}
	if v, err := strconv.ParseFloat(cell, 64); err == nil {
		row.SetFeatureValue(col, v)
	}
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func parseOptFloat(cell string) *float64 {
	if cell == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil
	}
	return &v
}
