package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleet-journal/internal/middleware"
)

// drain reads the whole body the way the roster upload does.
var drain = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if _, err := io.ReadAll(r.Body); err != nil {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}
	w.WriteHeader(http.StatusOK)
})

func TestMaxBodySizeHandler(t *testing.T) {
	cases := map[string]struct {
		size          int
		contentLength int64
		want          int
	}{
		"within limit":              {50, 50, http.StatusOK},
		"exactly the limit":         {100, 100, http.StatusOK},
		"declared length too large": {200, 200, http.StatusRequestEntityTooLarge},
		"streamed body too large":   {200, -1, http.StatusRequestEntityTooLarge},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := middleware.NewMaxBodySizeHandler(100)(drain)
			req := httptest.NewRequest(http.MethodPut, "/roster", strings.NewReader(strings.Repeat("x", tc.size)))
			req.ContentLength = tc.contentLength
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestMaxBodySizeHandler_RejectionIsJSONEnvelope(t *testing.T) {
	h := middleware.NewMaxBodySizeHandler(10)(drain)

	req := httptest.NewRequest(http.MethodPut, "/roster", strings.NewReader(strings.Repeat("x", 20)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":{"code":"payload_too_large","message":"request body too large"}}`, rec.Body.String())
}
