package export_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pkordes/fleet-journal/internal/domain"
	"github.com/pkordes/fleet-journal/internal/export"
)

func journalFixture() domain.JournalTable {
	out := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	in := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	v := domain.Vehicle{
		ID:     "AA1234",
		Fields: map[string]string{"Plate": "AA1234", "Model": "Mercedes-Benz Sprinter"},
	}
	return domain.JournalTable{
		KeyColumn: "Plate",
		Columns:   []string{"Plate", "Model"},
		Rows: []domain.JournalRow{
			{Vehicle: v, Event: domain.Event{CheckOutAt: &in}},
			{Vehicle: v, Event: domain.Event{CheckOutAt: &out, CheckInAt: &in}},
		},
	}
}

func TestRecords(t *testing.T) {
	got := export.Records(journalFixture())

	want := [][]string{
		{"Plate", "Model", "Check-out time", "Check-in time"},
		{"AA1234", "Mercedes-Benz Sprinter", "09:00:00 01.01.2024", "N/A"},
		{"AA1234", "Mercedes-Benz Sprinter", "08:00:00 01.01.2024", "09:00:00 01.01.2024"},
	}
	assert.Equal(t, want, got)
}

func TestRecords_EmptyJournal_HeaderOnly(t *testing.T) {
	got := export.Records(domain.JournalTable{KeyColumn: "Plate", Columns: []string{"Plate"}})

	assert.Equal(t, [][]string{{"Plate", "Check-out time", "Check-in time"}}, got)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, export.WriteCSV(&buf, journalFixture()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, export.Records(journalFixture()), records)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, export.WriteXLSX(&buf, journalFixture()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{export.SheetName}, f.GetSheetList())
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	assert.Equal(t, export.Records(journalFixture()), rows)

	width, err := f.GetColWidth(export.SheetName, "B")
	require.NoError(t, err)
	assert.Equal(t, float64(len("Mercedes-Benz Sprinter")), width)
}

func TestColumnWidths(t *testing.T) {
	got := export.ColumnWidths([][]string{
		{"No", "Модель"},
		{"12345", "Bus"},
	})

	assert.Equal(t, []int{5, 6}, got)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer

	export.WriteTable(&buf, journalFixture())

	out := buf.String()
	assert.Contains(t, out, "Mercedes-Benz Sprinter")
	assert.Contains(t, out, "N/A")
}

func TestFilename(t *testing.T) {
	got := export.Filename(time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC))

	assert.Equal(t, "events_05-03-2024_07-08-09.xlsx", got)
}
