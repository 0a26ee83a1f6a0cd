package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

// pdfColumnWidths must line up with columnHeaders; the wider debtor and
// client columns carry names, the rest are codes and amounts.
var pdfColumnWidths = []float64{34, 28, 24, 34, 26, 18, 28, 22, 22, 22, 22}

// WritePDF renders the report as a landscape A4 table.
func WritePDF(w io.Writer, rows []Row, generatedAt time.Time) error {

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Debtor Collections Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Debtor Collections Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s", generatedAt.Format("2 Jan 2006 15:04 MST")), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(30, 58, 138)
	pdf.SetTextColor(255, 255, 255)
	for i, header := range columnHeaders {
		pdf.CellFormat(pdfColumnWidths[i], 8, header, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(0, 0, 0)
	fill := false
	pdf.SetFillColor(241, 245, 249)
	for _, row := range rows {
		for i, value := range row.record() {
			align := "L"
			if i >= 7 { // amount columns
				align = "R"
			}
			pdf.CellFormat(pdfColumnWidths[i], 7, value, "1", 0, align, fill, 0, "")
		}
		pdf.Ln(-1)
		fill = !fill
	}

	if len(rows) == 0 {
		pdf.CellFormat(0, 8, "No debtors matched the filters.", "", 1, "L", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}

	return nil
}
