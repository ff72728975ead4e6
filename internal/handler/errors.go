package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/fleet-journal/internal/domain"
)

// ErrorDetail is the body of every error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail as {"error":{...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// Error codes.
const (
	codeNotFound            = "not_found"
	codeNoRoster            = "no_roster"
	codeDuplicateIdentifier = "duplicate_identifier"
	codeValidation          = "validation_error"
	codeTooLarge            = "payload_too_large"
	codeInternal            = "internal_error"
)

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestError rejects a request before it reaches the service layer,
// e.g. a malformed query parameter.
func requestError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: ErrorDetail{Code: codeValidation, Message: message}})
}

// writeError maps a service error to its status and code. Unexpected errors
// are logged and reported as 500 without details.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		code   string
		tooBig *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooBig):
		status, code = http.StatusRequestEntityTooLarge, codeTooLarge
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, codeNotFound
	case errors.Is(err, domain.ErrNoRoster):
		status, code = http.StatusConflict, codeNoRoster
	case errors.Is(err, domain.ErrDuplicateIdentifier):
		status, code = http.StatusConflict, codeDuplicateIdentifier
	case errors.Is(err, domain.ErrValidation):
		status, code = http.StatusUnprocessableEntity, codeValidation
	default:
		s.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{Code: codeInternal, Message: "internal error"}})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: unwrapMessage(err)}})
}

// unwrapMessage drops the "pkg.Type.Method: " call-site prefixes from a
// wrapped error, leaving the human-readable part.
// e.g. "service.JournalService.CheckOut: not found: vehicle \"X\" is not on the roster"
// → "not found: vehicle \"X\" is not on the roster"
func unwrapMessage(err error) string {
	msg := err.Error()
	for {
		head, rest, ok := strings.Cut(msg, ": ")
		if !ok || strings.ContainsAny(head, " \"") || !strings.Contains(head, ".") {
			return msg
		}
		msg = rest
	}
}
