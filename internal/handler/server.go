// Package handler implements the HTTP API of the fleet journal.
// All handlers are methods on Server. Methods are split into resource files
// (health.go, roster.go, vehicles.go, journal.go) but share the Server struct
// so they can reach its dependencies.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/fleet-journal/internal/domain"
	"github.com/pkordes/fleet-journal/internal/roster"
	"github.com/pkordes/fleet-journal/internal/service"
)

// JournalServicer defines the business operations the handlers depend on.
// Defining the interface here, in the consumer package, lets handler tests
// inject a mock without touching storage.
type JournalServicer interface {
	LoadRoster(ctx context.Context, src io.Reader, format roster.Format) (service.RosterView, error)
	Roster(ctx context.Context) (service.RosterView, error)
	Dashboard(ctx context.Context, totalOverride int) (service.Dashboard, error)
	CheckOut(ctx context.Context, id domain.VehicleID, at *time.Time) (service.VehicleStatus, error)
	CheckIn(ctx context.Context, id domain.VehicleID, at *time.Time) (service.VehicleStatus, error)
	Clear(ctx context.Context, policy domain.ClearPolicy) error
	ClearCheckedIn(ctx context.Context) error
	Journal(ctx context.Context) (domain.JournalTable, error)
	Summary(ctx context.Context, totalOverride int) (domain.Summary, error)
}

// Server serves the HTTP API.
type Server struct {
	journal JournalServicer
	openAPI []byte
	now     func() time.Time
	log     *slog.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithOpenAPI serves doc at GET /openapi.yaml.
func WithOpenAPI(doc []byte) Option {
	return func(s *Server) { s.openAPI = doc }
}

// WithClock replaces time.Now, used for export file names.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLogger sets the logger used for unexpected errors.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// NewServer constructs the Server with all its dependencies.
func NewServer(journal JournalServicer, opts ...Option) *Server {
	s := &Server{journal: journal, now: time.Now, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil)
}

// Routes returns the API router. Mount it on the application router in main.go.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	if s.openAPI != nil {
		r.Get("/openapi.yaml", s.GetOpenAPI)
	}
	if s.journal == nil {
		return r
	}

	r.Route("/roster", func(r chi.Router) {
		r.Get("/", s.GetRoster)
		r.Put("/", s.PutRoster)
	})
	r.Route("/vehicles", func(r chi.Router) {
		r.Get("/", s.ListVehicles)
		r.Post("/{id}/check-out", s.CheckOut)
		r.Post("/{id}/check-in", s.CheckIn)
	})
	r.Route("/journal", func(r chi.Router) {
		r.Get("/", s.GetJournal)
		r.Post("/clear", s.ClearJournal)
		r.Post("/clear-checked-in", s.ClearCheckedIn)
	})
	r.Get("/summary", s.GetSummary)
	return r
}
