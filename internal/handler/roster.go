package handler

import (
	"net/http"

	"github.com/pkordes/fleet-journal/internal/roster"
)

// GetRoster handles GET /roster.
func (s *Server) GetRoster(w http.ResponseWriter, r *http.Request) {
	view, err := s.journal.Roster(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rosterToResponse(view))
}

// PutRoster handles PUT /roster. The body is the roster file itself, as
// text/csv or an XLSX workbook. A rejected roster leaves the current one
// in place.
func (s *Server) PutRoster(w http.ResponseWriter, r *http.Request) {
	format, err := roster.FormatFromContentType(r.Header.Get("Content-Type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.journal.LoadRoster(r.Context(), r.Body, format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rosterToResponse(view))
}
