package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/fleet-journal/internal/domain"
	"github.com/pkordes/fleet-journal/internal/service"
)

// ListVehicles handles GET /vehicles.
// Supports ?total= to override the fleet size of the summary.
func (s *Server) ListVehicles(w http.ResponseWriter, r *http.Request) {
	total, ok := bindTotal(w, r)
	if !ok {
		return
	}

	d, err := s.journal.Dashboard(r.Context(), total)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardToResponse(d))
}

// CheckOut handles POST /vehicles/{id}/check-out[?at=].
func (s *Server) CheckOut(w http.ResponseWriter, r *http.Request) {
	s.record(w, r, s.journal.CheckOut)
}

// CheckIn handles POST /vehicles/{id}/check-in[?at=].
// Checking in a vehicle that is not away returns its unchanged status.
func (s *Server) CheckIn(w http.ResponseWriter, r *http.Request) {
	s.record(w, r, s.journal.CheckIn)
}

type recordFunc func(ctx context.Context, id domain.VehicleID, at *time.Time) (service.VehicleStatus, error)

func (s *Server) record(w http.ResponseWriter, r *http.Request, action recordFunc) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || id == "" {
		requestError(w, "invalid vehicle id")
		return
	}

	// at is an RFC 3339 timestamp; absent means now.
	var at *time.Time
	if err := runtime.BindQueryParameter("form", true, false, "at", r.URL.Query(), &at); err != nil {
		requestError(w, "invalid at: want an RFC 3339 timestamp")
		return
	}

	st, err := action(r.Context(), domain.VehicleID(id), at)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicleStatusToResponse(st))
}

// bindTotal reads the optional ?total= override. It writes the error
// response and reports false when the value is malformed.
func bindTotal(w http.ResponseWriter, r *http.Request) (int, bool) {
	var total *int
	if err := runtime.BindQueryParameter("form", true, false, "total", r.URL.Query(), &total); err != nil {
		requestError(w, "invalid total: want an integer")
		return 0, false
	}
	if total == nil {
		return 0, true
	}
	if *total < 0 {
		requestError(w, "invalid total: must not be negative")
		return 0, false
	}
	return *total, true
}
