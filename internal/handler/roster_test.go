package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleet-journal/internal/domain"
	"github.com/pkordes/fleet-journal/internal/handler"
	"github.com/pkordes/fleet-journal/internal/roster"
	"github.com/pkordes/fleet-journal/internal/service"
)

// ---- PUT /roster -----------------------------------------------------------

func TestPutRoster_200(t *testing.T) {
	var gotFormat roster.Format
	var gotBody string
	svc := &mockJournalServicer{
		loadRoster: func(_ context.Context, src io.Reader, f roster.Format) (service.RosterView, error) {
			gotFormat = f
			b, _ := io.ReadAll(src)
			gotBody = string(b)
			return service.RosterView{
				Roster: &domain.Roster{
					Title: "Motor pool", TotalVehicles: 10, KeyColumn: "Plate",
					Columns: []string{"Plate", "Model"}, Vehicles: []domain.Vehicle{sprinter()},
				},
				Orphans: []domain.VehicleID{"ZZ0000"},
			}, nil
		},
	}

	rec := do(t, newHTTPHandler(svc), http.MethodPut, "/roster", strings.NewReader("Plate\nAA1234\n"), "text/csv")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, roster.FormatCSV, gotFormat)
	assert.Equal(t, "Plate\nAA1234\n", gotBody)

	var body handler.RosterResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Motor pool", body.Title)
	assert.Equal(t, 10, body.TotalVehicles)
	assert.Equal(t, 1, body.Vehicles)
	assert.Equal(t, []string{"ZZ0000"}, body.Orphans)
}

func TestPutRoster_XLSXContentType(t *testing.T) {
	var gotFormat roster.Format
	svc := &mockJournalServicer{
		loadRoster: func(_ context.Context, _ io.Reader, f roster.Format) (service.RosterView, error) {
			gotFormat = f
			return service.RosterView{Roster: &domain.Roster{KeyColumn: "Plate"}}, nil
		},
	}

	rec := do(t, newHTTPHandler(svc), http.MethodPut, "/roster", strings.NewReader("x"), roster.ContentTypeXLSX)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, roster.FormatXLSX, gotFormat)
}

func TestPutRoster_422_UnsupportedContentType(t *testing.T) {
	rec := do(t, newHTTPHandler(&mockJournalServicer{}), http.MethodPut, "/roster", strings.NewReader("{}"), "application/json")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Code)
}

func TestPutRoster_409_Duplicates(t *testing.T) {
	svc := &mockJournalServicer{
		loadRoster: func(context.Context, io.Reader, roster.Format) (service.RosterView, error) {
			dup := errors.Join(&domain.DuplicateIdentifierError{ID: "AA1234", Rows: []int{2, 4}})
			return service.RosterView{}, fmt.Errorf("service.JournalService.LoadRoster: %w", dup)
		},
	}

	rec := do(t, newHTTPHandler(svc), http.MethodPut, "/roster", strings.NewReader("x"), "text/csv")

	require.Equal(t, http.StatusConflict, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, "duplicate_identifier", detail.Code)
	assert.Equal(t, `duplicate identifier: "AA1234" on rows 2, 4`, detail.Message)
}

// ---- GET /roster -----------------------------------------------------------

func TestGetRoster_409_NoRoster(t *testing.T) {
	svc := &mockJournalServicer{
		roster: func(context.Context) (service.RosterView, error) {
			return service.RosterView{}, fmt.Errorf("service.JournalService.Roster: %w", domain.ErrNoRoster)
		},
	}

	rec := do(t, newHTTPHandler(svc), http.MethodGet, "/roster", nil, "")

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "no_roster", decodeError(t, rec).Code)
}

func TestPutRoster_413_TooLarge(t *testing.T) {
	svc := &mockJournalServicer{
		loadRoster: func(context.Context, io.Reader, roster.Format) (service.RosterView, error) {
			return service.RosterView{}, fmt.Errorf("roster: %w", &http.MaxBytesError{Limit: 10})
		},
	}

	rec := do(t, newHTTPHandler(svc), http.MethodPut, "/roster", strings.NewReader("x"), "text/csv")

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "payload_too_large", decodeError(t, rec).Code)
}
