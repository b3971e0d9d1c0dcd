package dataset

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/gorozooo/my-stock-portfolio-sub001/internal/contracts"
)

// ParquetStore is the columnar RowWriter/RowReader, backed by
// parquet-go. The schema is derived from contracts.TrainRow struct tags;
// optional labels (r, hold_days, touch_first) become optional columns.
type ParquetStore struct{}

// Ext returns the artifact extension.
func (p *ParquetStore) Ext() string { return "parquet" }

// Write persists rows via temp-file + rename so readers never observe a
// partially written parquet file.
func (p *ParquetStore) Write(path string, rows []contracts.TrainRow) error {
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, rows); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish parquet: %w", err)
	}
	return nil
}

// Read loads a parquet dataset. Parquet artifacts always carry the full
// fixed schema, so the present-column list is the whole allow-list.
func (p *ParquetStore) Read(path string) ([]contracts.TrainRow, []string, error) {
	rows, err := parquet.ReadFile[contracts.TrainRow](path)
	if err != nil {
		return nil, nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, allColumns(), nil
}

// allColumns lists every dataset column in file order.
func allColumns() []string {
	cols := []string{"run_id", "code", "trade_date"}
	cols = append(cols, contracts.FeatureColumns()...)
	cols = append(cols, "label", "pl", "r", "hold_days", "touch_first")
	return cols
}
