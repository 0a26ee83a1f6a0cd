package report

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV renders the report as UTF-8 CSV with a BOM so spreadsheet
// applications pick up the encoding.
func WriteCSV(w io.Writer, rows []Row) error {

	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(columnHeaders); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range rows {
		if err := cw.Write(row.record()); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", row.DebtorName, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
