package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"vilo/internal/models"
	"vilo/internal/stay"
)

// ExcelWriter builds a workbook sheet by sheet.
type ExcelWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

// NewExcelWriter creates a new Excel writer.
func NewExcelWriter() *ExcelWriter {
	return &ExcelWriter{
		file: excelize.NewFile(),
	}
}

// AddSheet adds a new sheet with the given name.
func (w *ExcelWriter) AddSheet(name string) error {
	// Truncate sheet name to 31 chars (Excel limit)
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		// Rename default sheet
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes bold column headers to the current sheet.
func (w *ExcelWriter) WriteHeader(columns []string) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, col); err != nil {
			return err
		}
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}

	w.currentRow++
	return nil
}

// WriteRow writes a data row to the current sheet.
func (w *ExcelWriter) WriteRow(row []interface{}) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}

	w.currentRow++
	return nil
}

// Save writes the workbook to wr.
func (w *ExcelWriter) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

// Close releases resources.
func (w *ExcelWriter) Close() error {
	return w.file.Close()
}

// WriteBookingsExcel writes a two-sheet workbook: a summary of the period and one row per booking.
func WriteBookingsExcel(wr io.Writer, period stay.StayRange, bookings []models.Booking) error {
	w := NewExcelWriter()
	defer w.Close()

	s := Summarize(bookings)
	if err := w.AddSheet("Summary"); err != nil {
		return err
	}
	if err := w.WriteHeader([]string{"Metric", "Value"}); err != nil {
		return err
	}
	summaryRows := [][]interface{}{
		{"Period start", period.Start.String()},
		{"Period end", period.End.String()},
		{"Bookings", s.Bookings},
		{"Cancelled", s.Cancelled},
		{"Nights sold", s.Nights},
		{"Room revenue", s.RoomRevenue},
		{"Total revenue", s.Revenue},
		{"ADR", s.ADR},
	}
	for _, row := range summaryRows {
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}

	if err := w.AddSheet("Bookings"); err != nil {
		return err
	}
	if err := w.WriteHeader(Columns); err != nil {
		return err
	}
	for i := range bookings {
		if err := w.WriteRow(bookingRowValues(&bookings[i])); err != nil {
			return fmt.Errorf("write booking %s: %w", bookings[i].Reference, err)
		}
	}

	return w.Save(wr)
}
