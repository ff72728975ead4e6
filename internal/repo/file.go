package repo

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/pkordes/fleet-journal/internal/domain"
)

// fileJournalRepo stores the journal as a single CSV file: the descriptive
// columns followed by the check-out and check-in columns, one row per event.
// Unset timestamps are empty cells.
type fileJournalRepo struct {
	path string
	opts Options
}

// NewFileJournalRepo constructs a JournalRepo backed by the CSV file at path.
// The file and its directory are created on first Save.
func NewFileJournalRepo(path string, opts Options) JournalRepo {
	return &fileJournalRepo{path: path, opts: opts.withDefaults()}
}

// Load reads the whole file. A missing file, an empty file or a header
// without rows all yield an empty table.
func (r *fileJournalRepo) Load(ctx context.Context) (domain.JournalTable, error) {
	empty := domain.JournalTable{KeyColumn: r.opts.KeyColumn}

	f, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return empty, nil
	}
	if err != nil {
		return domain.JournalTable{}, fmt.Errorf("repo.FileJournalRepo.Load: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return empty, nil
	}
	if err != nil {
		return domain.JournalTable{}, fmt.Errorf("repo.FileJournalRepo.Load: header: %w", err)
	}

	layout, err := r.parseHeader(header)
	if err != nil {
		return domain.JournalTable{}, fmt.Errorf("repo.FileJournalRepo.Load: %w", err)
	}

	t := domain.JournalTable{KeyColumn: r.opts.KeyColumn, Columns: layout.columns}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.JournalTable{}, fmt.Errorf("repo.FileJournalRepo.Load: line %d: %w", line, err)
		}
		row, ok := r.parseRecord(ctx, layout, record, line)
		if ok {
			t.Rows = append(t.Rows, row)
		}
	}
	return t, nil
}

// Save writes t to a temporary file next to the journal and renames it into
// place, so a failed write never truncates the previous journal.
func (r *fileJournalRepo) Save(_ context.Context, t domain.JournalTable) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("repo.FileJournalRepo.Save: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".journal-*")
	if err != nil {
		return fmt.Errorf("repo.FileJournalRepo.Save: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeCSV(tmp, t); err != nil {
		tmp.Close()
		return fmt.Errorf("repo.FileJournalRepo.Save: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("repo.FileJournalRepo.Save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("repo.FileJournalRepo.Save: %w", err)
	}

	if info, err := os.Stat(r.path); err == nil {
		if err := os.Chmod(tmp.Name(), info.Mode()); err != nil {
			return fmt.Errorf("repo.FileJournalRepo.Save: %w", err)
		}
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("repo.FileJournalRepo.Save: %w", err)
	}
	return nil
}

// fileLayout maps header positions to descriptive columns and timestamps.
type fileLayout struct {
	columns  []string
	index    []int
	checkOut int
	checkIn  int
}

func (r *fileJournalRepo) parseHeader(header []string) (fileLayout, error) {
	l := fileLayout{checkOut: -1, checkIn: -1}
	for i, name := range header {
		switch name {
		case domain.ColumnCheckOut:
			l.checkOut = i
		case domain.ColumnCheckIn:
			l.checkIn = i
		case "":
		default:
			l.columns = append(l.columns, name)
			l.index = append(l.index, i)
		}
	}
	if !slices.Contains(l.columns, r.opts.KeyColumn) {
		return fileLayout{}, fmt.Errorf("%w: journal %s has no %q column", domain.ErrValidation, r.path, r.opts.KeyColumn)
	}
	return l, nil
}

func (r *fileJournalRepo) parseRecord(ctx context.Context, l fileLayout, record []string, line int) (domain.JournalRow, bool) {
	cell := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return record[i]
	}

	fields := make(map[string]string, len(l.columns))
	for i, col := range l.columns {
		fields[col] = cell(l.index[i])
	}
	id := domain.VehicleID(fields[r.opts.KeyColumn])
	if id == "" {
		r.opts.Logger.WarnContext(ctx, "journal row without vehicle id skipped", "path", r.path, "line", line)
		return domain.JournalRow{}, false
	}

	return domain.JournalRow{
		Vehicle: domain.Vehicle{ID: id, Fields: fields},
		Event: domain.Event{
			CheckOutAt: r.parseTime(ctx, cell(l.checkOut), line, domain.ColumnCheckOut),
			CheckInAt:  r.parseTime(ctx, cell(l.checkIn), line, domain.ColumnCheckIn),
		},
	}, true
}

func (r *fileJournalRepo) parseTime(ctx context.Context, s string, line int, column string) *time.Time {
	t, err := domain.ParseTimestamp(s, r.opts.Location)
	if err != nil {
		r.opts.Logger.WarnContext(ctx, "malformed journal timestamp treated as unset",
			"path", r.path, "line", line, "column", column, "error", err)
		return nil
	}
	return t
}

func writeCSV(w io.Writer, t domain.JournalTable) error {
	cw := csv.NewWriter(w)
	header := append(slices.Clone(t.Columns), domain.ColumnCheckOut, domain.ColumnCheckIn)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		record := make([]string, 0, len(header))
		for _, col := range t.Columns {
			if col == t.KeyColumn {
				record = append(record, string(row.Vehicle.ID))
				continue
			}
			record = append(record, row.Vehicle.Field(col))
		}
		record = append(record,
			domain.FormatTimestamp(row.Event.CheckOutAt),
			domain.FormatTimestamp(row.Event.CheckInAt),
		)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
