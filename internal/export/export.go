// Package export renders the flat journal for people: CSV and XLSX downloads
// and a terminal table. Unset timestamps are shown as domain.NotAvailable.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"

	"github.com/pkordes/fleet-journal/internal/domain"
)

// SheetName is the name of the only sheet of an XLSX export.
const SheetName = "Journal"

// Filename returns the download name of an XLSX export made at now,
// e.g. "events_01-01-2024_08-00-00.xlsx".
func Filename(now time.Time) string {
	return "events_" + now.Format("02-01-2006_15-04-05") + ".xlsx"
}

// Header returns the column titles: descriptive columns then the two timestamps.
func Header(t domain.JournalTable) []string {
	return append(slices.Clone(t.Columns), domain.ColumnCheckOut, domain.ColumnCheckIn)
}

// Records returns the header followed by one display record per row.
func Records(t domain.JournalTable) [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, Header(t))
	for _, r := range t.Rows {
		rec := make([]string, 0, len(t.Columns)+2)
		for _, col := range t.Columns {
			rec = append(rec, r.Vehicle.Field(col))
		}
		rec = append(rec,
			domain.DisplayTimestamp(r.Event.CheckOutAt),
			domain.DisplayTimestamp(r.Event.CheckInAt),
		)
		out = append(out, rec)
	}
	return out
}

// WriteCSV writes the journal as CSV.
func WriteCSV(w io.Writer, t domain.JournalTable) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Records(t)); err != nil {
		return fmt.Errorf("export.WriteCSV: %w", err)
	}
	return nil
}

// WriteXLSX writes the journal as a single-sheet workbook. Every column is
// as wide as its widest cell, header included.
func WriteXLSX(w io.Writer, t domain.JournalTable) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}

	records := Records(t)
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("export.WriteXLSX: %w", err)
		}
		row := make([]any, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("export.WriteXLSX: %w", err)
		}
	}

	for col, width := range ColumnWidths(records) {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("export.WriteXLSX: %w", err)
		}
		if err := f.SetColWidth(SheetName, name, name, float64(width)); err != nil {
			return fmt.Errorf("export.WriteXLSX: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	return nil
}

// ColumnWidths returns the display width of the widest cell of each column.
func ColumnWidths(records [][]string) []int {
	var widths []int
	for _, rec := range records {
		for i, v := range rec {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(v))
		}
	}
	return widths
}

// WriteTable renders the journal as a terminal table.
func WriteTable(w io.Writer, t domain.JournalTable) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)

	records := Records(t)
	tw.AppendHeader(toRow(records[0]))
	for _, rec := range records[1:] {
		tw.AppendRow(toRow(rec))
	}
	tw.Render()
}

func toRow(rec []string) table.Row {
	row := make(table.Row, len(rec))
	for i, v := range rec {
		row[i] = v
	}
	return row
}
