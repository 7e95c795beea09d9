// Package export renders trainer reports as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"example.com/bjjpoints/internal/domain"
)

// ContentTypeXLSX is the media type of the workbook written by WriteRoster.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var rosterHeader = []interface{}{
	"Rang", "Name", "Gürtel", "Punkte", "Trainings", "Turniere", "Strafen", "Fehlverhalten", "Fortschritt %", "Gurtprüfung",
}

// SheetName returns the worksheet name for a season.
func SheetName(year int) string {
	return fmt.Sprintf("Saison %d", year)
}

// WriteRoster writes the ranked roster of a season as an XLSX workbook.
func WriteRoster(w io.Writer, year int, rows []domain.RosterRow) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(year)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	if err := f.SetSheetRow(sheet, "A1", &rosterHeader); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastCol, err := excelize.CoordinatesToCellName(len(rosterHeader), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol, bold); err != nil {
		return err
	}

	for i, row := range rows {
		ready := ""
		if row.Summary.BeltReady {
			ready = "bereit"
		}
		values := []interface{}{
			row.Rank,
			row.Athlete.Name,
			row.Athlete.Belt.Label(),
			row.Summary.TotalPoints,
			row.Summary.Trainings,
			row.Summary.Tournaments,
			row.Summary.Penalties,
			row.Summary.Misconducts,
			fmt.Sprintf("%.1f", row.Summary.ProgressPercent),
			ready,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheet, "B", "B", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "C", "J", 14); err != nil {
		return err
	}

	return f.Write(w)
}
