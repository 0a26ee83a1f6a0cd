package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const debtorSheetName = "Debtors"

// WriteXLSX renders the report as a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []Row) error {

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(debtorSheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	if err := writeDebtorSheet(f, rows); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	return nil
}

// WriteMonthlyXLSX renders the monthly archive workbook: the full debtor
// standing plus a sheet of the month's uploaded payments.
func WriteMonthlyXLSX(w io.Writer, rows []Row, payments []PaymentRow, month string) error {

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(debtorSheetName)
	if err != nil {
		return fmt.Errorf("failed to create debtor sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	if err := writeDebtorSheet(f, rows); err != nil {
		return err
	}

	paymentSheet := fmt.Sprintf("Payments %s", month)
	if _, err := f.NewSheet(paymentSheet); err != nil {
		return fmt.Errorf("failed to create payment sheet: %w", err)
	}

	paymentHeaders := []string{"Debtor Name", "Client", "Amount", "Verified", "Uploaded At"}
	for i, header := range paymentHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(paymentSheet, cell, header)
	}

	for i, p := range payments {
		row := i + 2
		f.SetCellValue(paymentSheet, fmt.Sprintf("A%d", row), p.DebtorName)
		f.SetCellValue(paymentSheet, fmt.Sprintf("B%d", row), p.Client)
		f.SetCellValue(paymentSheet, fmt.Sprintf("C%d", row), p.Amount.StringFixed(2))
		f.SetCellValue(paymentSheet, fmt.Sprintf("D%d", row), p.Verified)
		f.SetCellValue(paymentSheet, fmt.Sprintf("E%d", row), p.UploadedAt.Format("2006-01-02 15:04:05"))
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write monthly workbook: %w", err)
	}

	return nil
}

func writeDebtorSheet(f *excelize.File, rows []Row) error {

	for i, header := range columnHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to map header cell: %w", err)
		}
		f.SetCellValue(debtorSheetName, cell, header)
	}

	for i, r := range rows {
		for j, value := range r.record() {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return fmt.Errorf("failed to map row cell: %w", err)
			}
			f.SetCellValue(debtorSheetName, cell, value)
		}
	}

	return nil
}
