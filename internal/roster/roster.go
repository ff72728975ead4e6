// Package roster reads the vehicle roster from a CSV file or an XLSX workbook.
//
// A roster is a header row naming the descriptive columns followed by one row
// per vehicle. It may be preceded by a one-row manifest carrying the roster
// title and, optionally, the declared fleet size.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pkordes/fleet-journal/internal/domain"
)

// Format is the container format of a roster source.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ContentTypeXLSX is the media type of an XLSX workbook.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: unsupported roster file %q (want .csv or .xlsx)", domain.ErrValidation, path)
	}
}

// FormatFromContentType picks the format from an HTTP Content-Type header.
func FormatFromContentType(contentType string) (Format, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: invalid content type %q", domain.ErrValidation, contentType)
	}
	switch mediaType {
	case "text/csv":
		return FormatCSV, nil
	case ContentTypeXLSX, "application/vnd.ms-excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: unsupported roster content type %q", domain.ErrValidation, mediaType)
	}
}

// Reader parses rosters keyed by a fixed column.
type Reader struct {
	keyColumn string
}

// NewReader returns a Reader that identifies vehicles by keyColumn.
func NewReader(keyColumn string) *Reader {
	return &Reader{keyColumn: keyColumn}
}

// ReadFile opens path and parses it in the format implied by its extension.
func (r *Reader) ReadFile(path string) (*domain.Roster, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("roster.Reader.ReadFile: %w", err)
	}
	defer f.Close()
	return r.Read(f, format)
}

// Read parses src. A roster with duplicate identifiers is rejected with one
// *domain.DuplicateIdentifierError per duplicated identifier.
func (r *Reader) Read(src io.Reader, format Format) (*domain.Roster, error) {
	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = readCSV(src)
	case FormatXLSX:
		records, err = readXLSX(src)
	default:
		return nil, fmt.Errorf("%w: unsupported roster format %q", domain.ErrValidation, format)
	}
	if err != nil {
		return nil, err
	}
	return Parse(records, r.keyColumn)
}

// sourceRow is a non-blank record with its 1-based position in the source.
type sourceRow struct {
	line  int
	cells []string
}

// Parse builds a roster from raw records.
func Parse(records [][]string, keyColumn string) (*domain.Roster, error) {
	rows := nonBlank(records)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: roster is empty", domain.ErrValidation)
	}

	out := &domain.Roster{KeyColumn: keyColumn}

	if !slices.Contains(rows[0].cells, keyColumn) {
		if err := parseManifest(rows[0], out); err != nil {
			return nil, err
		}
		rows = rows[1:]
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: roster has no header row", domain.ErrValidation)
		}
	}

	header := rows[0]
	index, err := parseHeader(header, keyColumn, out)
	if err != nil {
		return nil, err
	}

	seen := make(map[domain.VehicleID][]int)
	var order []domain.VehicleID
	for _, row := range rows[1:] {
		fields := make(map[string]string, len(out.Columns))
		for i, col := range out.Columns {
			if idx := index[i]; idx < len(row.cells) {
				fields[col] = row.cells[idx]
			} else {
				fields[col] = ""
			}
		}
		id := domain.VehicleID(fields[keyColumn])
		if id == "" {
			return nil, fmt.Errorf("%w: row %d has no %q", domain.ErrValidation, row.line, keyColumn)
		}
		if _, dup := seen[id]; !dup {
			order = append(order, id)
		}
		seen[id] = append(seen[id], row.line)
		out.Vehicles = append(out.Vehicles, domain.Vehicle{ID: id, Fields: fields})
	}

	var dups []error
	for _, id := range order {
		if lines := seen[id]; len(lines) > 1 {
			dups = append(dups, &domain.DuplicateIdentifierError{ID: id, Rows: lines})
		}
	}
	if len(dups) > 0 {
		return nil, errors.Join(dups...)
	}
	return out, nil
}

// parseManifest reads the optional first row. Its shape depends on how many
// cells it has: (title), (reserved, title) or (ignored, total, title).
func parseManifest(row sourceRow, out *domain.Roster) error {
	cells := trimTrailing(row.cells)
	switch len(cells) {
	case 1:
		out.Title = cells[0]
	case 2:
		out.Title = cells[1]
	case 3:
		total, err := strconv.Atoi(cells[1])
		if err != nil || total < 0 {
			return fmt.Errorf("%w: manifest row %d: invalid vehicle count %q", domain.ErrValidation, row.line, cells[1])
		}
		out.TotalVehicles = total
		out.Title = cells[2]
	default:
		return fmt.Errorf("%w: row %d is neither a header with %q nor a manifest",
			domain.ErrValidation, row.line, out.KeyColumn)
	}
	return nil
}

// parseHeader fills out.Columns and returns, per column, its cell index.
func parseHeader(header sourceRow, keyColumn string, out *domain.Roster) ([]int, error) {
	var index []int
	for i, name := range header.cells {
		if name == "" {
			continue
		}
		if slices.Contains(out.Columns, name) {
			return nil, fmt.Errorf("%w: header row %d repeats column %q", domain.ErrValidation, header.line, name)
		}
		out.Columns = append(out.Columns, name)
		index = append(index, i)
	}
	if !slices.Contains(out.Columns, keyColumn) {
		return nil, fmt.Errorf("%w: header row %d has no %q column", domain.ErrValidation, header.line, keyColumn)
	}
	return index, nil
}

func readCSV(src io.Reader) ([][]string, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read csv roster: %w", domain.ErrValidation, err)
	}
	return records, nil
}

func readXLSX(src io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: open xlsx roster: %w", domain.ErrValidation, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: xlsx roster has no sheets", domain.ErrValidation)
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("roster.readXLSX: %w", err)
	}
	return records, nil
}

func nonBlank(records [][]string) []sourceRow {
	var rows []sourceRow
	for i, rec := range records {
		cells := make([]string, len(rec))
		blank := true
		for j, c := range rec {
			cells[j] = strings.TrimSpace(c)
			if cells[j] != "" {
				blank = false
			}
		}
		if !blank {
			rows = append(rows, sourceRow{line: i + 1, cells: cells})
		}
	}
	return rows
}

func trimTrailing(cells []string) []string {
	n := len(cells)
	for n > 0 && cells[n-1] == "" {
		n--
	}
	return cells[:n]
}
