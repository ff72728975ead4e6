package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleet-journal/internal/domain"
	"github.com/pkordes/fleet-journal/internal/handler"
	"github.com/pkordes/fleet-journal/internal/service"
)

// ---- GET /vehicles ---------------------------------------------------------

func TestListVehicles_200(t *testing.T) {
	since := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	var gotTotal int
	svc := &mockJournalServicer{
		dashboard: func(_ context.Context, total int) (service.Dashboard, error) {
			gotTotal = total
			return service.Dashboard{
				Title: "Motor pool",
				Vehicles: []service.VehicleStatus{{
					Vehicle: sprinter(),
					Status:  domain.Status{Present: false, Since: &since},
					State:   domain.StateOpen,
					Events:  1,
				}},
				Summary: domain.Summary{Total: 10, CheckedOut: 1, Present: 9},
			}, nil
		},
	}

	rec := do(t, newHTTPHandler(svc), http.MethodGet, "/vehicles?total=12", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 12, gotTotal)

	var body handler.DashboardResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Vehicles, 1)
	assert.Equal(t, "AA1234", body.Vehicles[0].ID)
	assert.False(t, body.Vehicles[0].Present)
	assert.Equal(t, "open", body.Vehicles[0].State)
	require.NotNil(t, body.Vehicles[0].Since)
	assert.True(t, since.Equal(*body.Vehicles[0].Since))
	assert.Equal(t, handler.SummaryResponse{Total: 10, CheckedOut: 1, Present: 9}, body.Summary)
	assert.Empty(t, body.Orphans)
}

func TestListVehicles_422_BadTotal(t *testing.T) {
	rec := do(t, newHTTPHandler(&mockJournalServicer{}), http.MethodGet, "/vehicles?total=many", nil, "")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// ---- POST /vehicles/{id}/check-out|check-in --------------------------------

func TestCheckOut_200_DefaultsToNow(t *testing.T) {
	var gotID domain.VehicleID
	var gotAt *time.Time
	svc := &mockJournalServicer{
		checkOut: func(_ context.Context, id domain.VehicleID, at *time.Time) (service.VehicleStatus, error) {
			gotID, gotAt = id, at
			return service.VehicleStatus{Vehicle: sprinter(), State: domain.StateOpen}, nil
		},
	}

	rec := do(t, newHTTPHandler(svc), http.MethodPost, "/vehicles/AA1234/check-out", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.VehicleID("AA1234"), gotID)
	assert.Nil(t, gotAt)
}

func TestCheckIn_200_WithAt(t *testing.T) {
	var gotAt *time.Time
	svc := &mockJournalServicer{
		checkIn: func(_ context.Context, _ domain.VehicleID, at *time.Time) (service.VehicleStatus, error) {
			gotAt = at
			return service.VehicleStatus{Vehicle: sprinter(), Status: domain.Status{Present: true}, State: domain.StateClosed}, nil
		},
	}

	rec := do(t, newHTTPHandler(svc), http.MethodPost, "/vehicles/AA1234/check-in?at=2024-01-01T09:30:00Z", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotAt)
	assert.True(t, time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC).Equal(*gotAt))

	var body handler.VehicleStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Present)
	assert.Equal(t, "closed", body.State)
}

func TestCheckOut_422_BadAt(t *testing.T) {
	rec := do(t, newHTTPHandler(&mockJournalServicer{}), http.MethodPost, "/vehicles/AA1234/check-out?at=yesterday", nil, "")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Code)
}

func TestCheckOut_404_UnknownVehicle(t *testing.T) {
	svc := &mockJournalServicer{
		checkOut: func(_ context.Context, id domain.VehicleID, _ *time.Time) (service.VehicleStatus, error) {
			return service.VehicleStatus{}, fmt.Errorf("service.JournalService.CheckOut: %w: vehicle %q is not on the roster", domain.ErrNotFound, id)
		},
	}

	rec := do(t, newHTTPHandler(svc), http.MethodPost, "/vehicles/XX0000/check-out", nil, "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, "not_found", detail.Code)
	assert.Equal(t, `not found: vehicle "XX0000" is not on the roster`, detail.Message)
}

func TestCheckOut_500_HidesDetails(t *testing.T) {
	svc := &mockJournalServicer{
		checkOut: func(context.Context, domain.VehicleID, *time.Time) (service.VehicleStatus, error) {
			return service.VehicleStatus{}, errors.New("disk full")
		},
	}

	rec := do(t, newHTTPHandler(svc), http.MethodPost, "/vehicles/AA1234/check-out", nil, "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, "internal_error", detail.Code)
	assert.NotContains(t, detail.Message, "disk full")
}
