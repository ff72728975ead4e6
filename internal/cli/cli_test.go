package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pkordes/fleet-journal/internal/config"
	"github.com/pkordes/fleet-journal/internal/domain"
	"github.com/pkordes/fleet-journal/internal/export"
)

const rosterCSV = `,3,Motor pool
No,Model,Plate
1,Sprinter,AA1234
2,Transit,BB5678
3,Crafter,CC9012
`

var clock = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	dir     string
	roster  string
	journal string
	opts    Options
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	rosterPath := filepath.Join(dir, "roster.csv")
	require.NoError(t, os.WriteFile(rosterPath, []byte(rosterCSV), 0o600))

	f := fixture{dir: dir, roster: rosterPath, journal: filepath.Join(dir, "data", "journal.csv")}
	f.opts = Options{
		Config: config.Config{
			RosterPath:  rosterPath,
			JournalPath: f.journal,
			KeyColumn:   "Plate",
			ClearPolicy: domain.ClearKeepOpen,
			Location:    time.UTC,
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    func() time.Time { return clock },
	}
	return f
}

func (f fixture) run(t *testing.T, args ...string) string {
	t.Helper()
	out, err := f.exec(args...)
	require.NoError(t, err, "fleetctl %s\n%s", strings.Join(args, " "), out)
	return out
}

func (f fixture) exec(args ...string) (string, error) {
	cmd := NewRootCommand(context.Background(), f.opts)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCLIWorkflowEndToEnd(t *testing.T) {
	f := newFixture(t)

	// 1. Nothing recorded yet.
	status := f.run(t, "status")
	assert.Contains(t, status, "Motor pool")
	assert.Contains(t, status, "AA1234")
	assert.Contains(t, status, "Total 3, checked out 0, present 3")

	// 2. One vehicle leaves and comes back; another leaves.
	out := f.run(t, "check-out", "AA1234", "--at", "08:00:00 01.01.2024")
	assert.Equal(t, "AA1234: away since 08:00:00 01.01.2024\n", out)
	out = f.run(t, "check-in", "AA1234", "--at", "09:30:00 01.01.2024")
	assert.Equal(t, "AA1234: present since 09:30:00 01.01.2024\n", out)
	out = f.run(t, "check-out", "BB5678")
	assert.Equal(t, "BB5678: away since 12:00:00 01.01.2024\n", out)

	// 3. A check-in of a present vehicle changes nothing.
	out = f.run(t, "check-in", "CC9012")
	assert.Equal(t, "CC9012: present\n", out)

	// 4. Counts.
	out = f.run(t, "summary")
	assert.Equal(t, "Total: 3\nChecked out: 1\nPresent: 2\n", out)
	out = f.run(t, "summary", "--total", "10")
	assert.Contains(t, out, "Present: 9")

	// 5. The journal file is the flat CSV, most recent check-out first.
	records := readJournalFile(t, f.journal)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"No", "Model", "Plate", "Check-out time", "Check-in time"}, records[0])
	assert.Equal(t, []string{"2", "Transit", "BB5678", "12:00:00 01.01.2024", ""}, records[1])
	assert.Equal(t, []string{"1", "Sprinter", "AA1234", "08:00:00 01.01.2024", "09:30:00 01.01.2024"}, records[2])

	// 6. Clearing completed trips keeps the vehicle that is away.
	assert.Equal(t, "Checked-in events cleared\n", f.run(t, "clear-checked-in"))
	records = readJournalFile(t, f.journal)
	require.Len(t, records, 2)
	assert.Equal(t, "BB5678", records[1][2])

	// 7. A full clear drops it too.
	assert.Equal(t, "Journal cleared\n", f.run(t, "clear", "--policy", "all"))
	assert.Len(t, readJournalFile(t, f.journal), 1)
}

func TestCheckOut_UnknownVehicle(t *testing.T) {
	f := newFixture(t)

	_, err := f.exec("check-out", "XX0000")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckOut_NoRoster(t *testing.T) {
	f := newFixture(t)

	_, err := f.exec("check-out", "AA1234", "--roster", "")

	assert.ErrorIs(t, err, domain.ErrNoRoster)
}

func TestCheckOut_BadAt(t *testing.T) {
	f := newFixture(t)

	_, err := f.exec("check-out", "AA1234", "--at", "2024-01-01 08:00")

	assert.ErrorIs(t, err, domain.ErrMalformedTimestamp)
}

func TestClear_DefaultPolicyKeepsOpen(t *testing.T) {
	f := newFixture(t)
	f.run(t, "check-out", "AA1234", "--at", "08:00:00 01.01.2024")
	f.run(t, "check-in", "AA1234", "--at", "09:00:00 01.01.2024")
	f.run(t, "check-out", "BB5678", "--at", "10:00:00 01.01.2024")

	f.run(t, "clear")

	records := readJournalFile(t, f.journal)
	require.Len(t, records, 2)
	assert.Equal(t, "BB5678", records[1][2])
}

func TestClear_UnknownPolicy(t *testing.T) {
	f := newFixture(t)

	_, err := f.exec("clear", "--policy", "sometimes")

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestJournal_Formats(t *testing.T) {
	f := newFixture(t)
	f.run(t, "check-out", "AA1234", "--at", "08:00:00 01.01.2024")

	table := f.run(t, "journal")
	assert.Contains(t, table, "Sprinter")
	assert.Contains(t, table, "N/A")

	csvOut := f.run(t, "journal", "--format", "csv")
	assert.Equal(t, "No,Model,Plate,Check-out time,Check-in time\n1,Sprinter,AA1234,08:00:00 01.01.2024,N/A\n", csvOut)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(f.run(t, "journal", "--format", "json")), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "AA1234", rows[0]["Plate"])
	assert.Equal(t, "N/A", rows[0]["Check-in time"])
}

func TestJournal_XLSXToFile(t *testing.T) {
	f := newFixture(t)
	f.run(t, "check-out", "AA1234", "--at", "08:00:00 01.01.2024")
	path := filepath.Join(f.dir, export.Filename(clock))

	out := f.run(t, "journal", "--format", "xlsx", "--output", path)

	assert.Contains(t, out, "Wrote 1 event(s)")
	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "AA1234", rows[1][2])
}

func TestJournal_Empty(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "out.xlsx")

	assert.Equal(t, "Journal is empty\n", f.run(t, "journal"))
	assert.Equal(t, "Journal is empty\n", f.run(t, "journal", "--format", "xlsx", "--output", path))
	assert.NoFileExists(t, path)
}

func TestJournal_WithoutRoster(t *testing.T) {
	f := newFixture(t)
	f.run(t, "check-out", "AA1234", "--at", "08:00:00 01.01.2024")

	out := f.run(t, "journal", "--format", "csv", "--roster", "")

	assert.Contains(t, out, "Sprinter")
}

func TestJournal_InvalidFormat(t *testing.T) {
	f := newFixture(t)

	path := filepath.Join(f.dir, "journal.pdf")

	_, err := f.exec("journal", "--format", "pdf", "--output", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.NoFileExists(t, path)
	assert.NoFileExists(t, f.journal, "the journal is not touched")
}

func readJournalFile(t *testing.T, path string) [][]string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	return records
}
