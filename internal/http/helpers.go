package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Row   int    `json:"row,omitempty"`
}

type successResponse struct {
	Success       bool   `json:"success"`
	ID            string `json:"id,omitempty"`
	InsertedCount *int   `json:"insertedCount,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status: validation failures are 400, unknown
// ids 404 and oversized bodies 413. Anything else is logged and reported as
// a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rowErr   *core.RowError
		verr     *core.ValidationError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
	case errors.As(err, &rowErr):
		resp := errorResponse{Error: err.Error(), Row: rowErr.Row}
		if errors.As(rowErr.Err, &verr) {
			resp.Field = verr.Field
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "expense not found"})
	default:
		log.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, r.Method+" "+r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// sanitizeInput drops control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
