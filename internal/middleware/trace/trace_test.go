package trace

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"expensetracker/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var seen string
	h := NewMiddleware(nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Errorf("request id = %q, want req_ prefix", seen)
	}
	if got := rr.Header().Get(HeaderRequestID); got != seen {
		t.Errorf("response header = %q, want %q", got, seen)
	}
	if rr.Code != http.StatusTeapot {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestMiddlewareReusesIncomingID(t *testing.T) {
	tests := []struct {
		incoming string
		reused   bool
	}{
		{"abc-123", true},
		{"bad id with spaces", false},
		{strings.Repeat("x", 65), false},
	}
	for _, tt := range tests {
		var seen string
		h := NewMiddleware(nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, tt.incoming)
		h.ServeHTTP(httptest.NewRecorder(), req)

		if (seen == tt.incoming) != tt.reused {
			t.Errorf("incoming %q: got id %q, reused want %v", tt.incoming, seen, tt.reused)
		}
	}
}

func TestMiddlewareLogsCompletion(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: "json", Output: &buf, Component: log.ComponentApp})

	inner := NewMiddleware(func(*http.Request) string { return "10.0.0.9" }).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusNotFound)
		}))
	h := log.Middleware(logger)(inner)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/expenses?id=1", nil))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["level"] != "WARN" || entry[log.FieldStatusCode] != float64(404) {
		t.Errorf("log entry = %v", entry)
	}
	if entry[log.FieldClientIP] != "10.0.0.9" || entry[log.FieldRequestID] == "" {
		t.Errorf("log entry missing request metadata: %v", entry)
	}
}
