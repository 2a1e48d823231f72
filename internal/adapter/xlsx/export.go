// Package xlsx renders water reports as Excel workbooks.
package xlsx

import (
	"fmt"
	"io"

	"github.com/couchcryptid/brew-water-service/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	profileSheet = "Profil"
	historySheet = "Historique"
	dateLayout   = "2006-01-02"
)

var (
	profileHeader = []any{"Paramètre", "Valeur", "Unité", "Min", "Max", "Conforme"}
	historyHeader = []any{"Paramètre", "Date", "Valeur", "Unité"}
)

// WriteReport writes a two-sheet workbook: the calculator profile with target
// ranges, and every trend point in long format.
func WriteReport(w io.Writer, r domain.WaterReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", profileSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(historySheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeProfile(f, r, headerStyle); err != nil {
		return err
	}
	if err := writeHistory(f, r, headerStyle); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeProfile(f *excelize.File, r domain.WaterReport, headerStyle int) error {
	rows := make([][]any, 0, len(r.Rows)+1)
	rows = append(rows, profileHeader)
	for _, row := range r.Rows {
		conform := "non"
		if row.InRange {
			conform = "oui"
		}
		rows = append(rows, []any{row.Name, row.Value, row.Unit, row.Target.Min, row.Target.Max, conform})
	}
	return writeSheet(f, profileSheet, rows, headerStyle, []float64{22, 12, 10, 8, 8, 10})
}

func writeHistory(f *excelize.File, r domain.WaterReport, headerStyle int) error {
	rows := [][]any{historyHeader}
	for _, tr := range r.Trends {
		for _, p := range tr.Points {
			rows = append(rows, []any{tr.Name, p.X.Format(dateLayout), p.Y, tr.Unit})
		}
	}
	return writeSheet(f, historySheet, rows, headerStyle, []float64{22, 12, 12, 10})
}

func writeSheet(f *excelize.File, sheet string, rows [][]any, headerStyle int, widths []float64) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("set %s row %d: %w", sheet, i+1, err)
		}
	}

	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return fmt.Errorf("convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("set header style: %w", err)
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("convert column number: %w", err)
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze panes: %w", err)
	}
	return nil
}
