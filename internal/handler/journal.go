package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/fleet-journal/internal/domain"
	"github.com/pkordes/fleet-journal/internal/export"
	"github.com/pkordes/fleet-journal/internal/roster"
)

// Journal download formats.
const (
	formatJSON = "json"
	formatCSV  = "csv"
	formatXLSX = "xlsx"
)

// GetJournal handles GET /journal.
// Use ?format=csv or ?format=xlsx for a download; default is JSON.
func (s *Server) GetJournal(w http.ResponseWriter, r *http.Request) {
	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		requestError(w, "invalid format")
		return
	}
	f := formatJSON
	if format != nil {
		f = *format
	}
	if f != formatJSON && f != formatCSV && f != formatXLSX {
		requestError(w, "format must be one of json, csv, xlsx")
		return
	}

	t, err := s.journal.Journal(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch f {
	case formatCSV:
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, t); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeAttachment(w, "text/csv; charset=utf-8", "events.csv", &buf)
	case formatXLSX:
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, t); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeAttachment(w, roster.ContentTypeXLSX, export.Filename(s.now()), &buf)
	default:
		writeJSON(w, http.StatusOK, journalToResponse(t))
	}
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ClearJournal handles POST /journal/clear[?policy=keep-open|all].
// Without a policy the server's configured default applies.
func (s *Server) ClearJournal(w http.ResponseWriter, r *http.Request) {
	var raw *string
	if err := runtime.BindQueryParameter("form", true, false, "policy", r.URL.Query(), &raw); err != nil {
		requestError(w, "invalid policy")
		return
	}
	var policy domain.ClearPolicy
	if raw != nil {
		p, err := domain.ParseClearPolicy(*raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		policy = p
	}

	if err := s.journal.Clear(r.Context(), policy); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCheckedIn handles POST /journal/clear-checked-in.
func (s *Server) ClearCheckedIn(w http.ResponseWriter, r *http.Request) {
	if err := s.journal.ClearCheckedIn(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSummary handles GET /summary[?total=].
func (s *Server) GetSummary(w http.ResponseWriter, r *http.Request) {
	total, ok := bindTotal(w, r)
	if !ok {
		return
	}

	sum, err := s.journal.Summary(r.Context(), total)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryToResponse(sum))
}
