package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/report"
	"expensetracker/internal/services"
	"expensetracker/internal/storage/memory"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := services.NewExpenseService(store,
		services.WithSummaryCache(cache.NewLRU[report.Summary](8, time.Hour)),
		services.WithLogger(log.Discard()),
	)
	srv := NewServer(":0", svc, append([]Option{WithLogger(log.Discard())}, opts...)...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store
}

func do(t *testing.T, srv *Server, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func doJSON(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, srv, method, target, strings.NewReader(body), "application/json")
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t)
	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		rr := do(t, srv, http.MethodGet, path, nil, "")
		if rr.Code != http.StatusOK || rr.Body.String() != want {
			t.Errorf("%s = %d %q", path, rr.Code, rr.Body.String())
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing request id header", path)
		}
	}

	down, _ := newTestServer(t, WithReadiness(func(context.Context) error { return errors.New("db down") }))
	if rr := do(t, down, http.MethodGet, "/readyz", nil, ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with failing check = %d", rr.Code)
	}
}

func TestCategories(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/categories", nil, "")
	got := decode[categoriesResponse](t, rr)
	if len(got.Categories) != 13 || got.Default != "Other" || got.Categories[0] != "Necessary Travel" {
		t.Errorf("categories = %+v", got)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestCreateAndListExpenses(t *testing.T) {
	srv, store := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/expenses",
		`{"description":"rent","amount":500,"category":"Rent","saving":"0","date":"2024-02-01"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("create = %d %s", rr.Code, rr.Body.String())
	}
	created := decode[successResponse](t, rr)
	if !created.Success || created.ID == "" || store.Len() != 1 {
		t.Fatalf("create response = %+v", created)
	}

	rr = do(t, srv, http.MethodGet, "/api/expenses?year=2024&month=2", nil, "")
	list := decode[[]core.Expense](t, rr)
	if len(list) != 1 || list[0].ID != created.ID || list[0].Amount != 500 {
		t.Errorf("list = %+v", list)
	}

	rr = do(t, srv, http.MethodGet, "/api/expenses?year=2024&month=3", nil, "")
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("empty month body = %q, want []", rr.Body.String())
	}
}

func TestCreateExpenseErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"invalid category", `{"amount":1,"category":"Nope"}`, http.StatusBadRequest, "category"},
		{"bad amount", `{"amount":"ten","category":"Rent"}`, http.StatusBadRequest, "amount"},
		{"bad json", `{"amount":`, http.StatusBadRequest, "body"},
		{"bool amount", `{"amount":true,"category":"Rent"}`, http.StatusBadRequest, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t)
			rr := doJSON(t, srv, http.MethodPost, "/api/expenses", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.status, rr.Body.String())
			}
			if got := decode[errorResponse](t, rr); got.Field != tt.field {
				t.Errorf("field = %q, want %q", got.Field, tt.field)
			}
		})
	}
}

func TestListRequiresMonthParams(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, target := range []string{"/api/expenses", "/api/expenses?year=2024", "/api/summary?month=1", "/api/savings?year=2024&month=13"} {
		if rr := do(t, srv, http.MethodGet, target, nil, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", target, rr.Code)
		}
	}
}

func TestUpdateAndDeleteExpense(t *testing.T) {
	srv, store := newTestServer(t)
	id, err := store.Insert(context.Background(), core.Expense{Amount: 1, Category: "Rent", Date: time.Now().UTC()})
	if err != nil {
		t.Fatal(err)
	}

	if rr := doJSON(t, srv, http.MethodPut, "/api/expenses", `{"amount":1,"category":"Rent"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("update without id = %d", rr.Code)
	}
	if rr := doJSON(t, srv, http.MethodPut, "/api/expenses?id=missing", `{"amount":1,"category":"Rent"}`); rr.Code != http.StatusNotFound {
		t.Errorf("update unknown id = %d", rr.Code)
	}
	rr := doJSON(t, srv, http.MethodPut, "/api/expenses?id="+id, `{"amount":"9,99","category":"House","date":"2024-06-01"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update = %d %s", rr.Code, rr.Body.String())
	}
	if got, _ := store.Get(context.Background(), id); got.Amount != 9.99 || got.Category != "House" {
		t.Errorf("updated record = %+v", got)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/expenses?id="+id, nil, ""); rr.Code != http.StatusOK {
		t.Fatalf("delete = %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/expenses?id="+id, nil, ""); rr.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rr.Code)
	}
}

func TestBulkAdd(t *testing.T) {
	srv, store := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPatch, "/api/expenses",
		`{"expenses":[{"description":"a","amount":"10"},{"description":"b","amount":5.5,"category":"Rent"}],"date":"2024-03-10"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("bulk = %d %s", rr.Code, rr.Body.String())
	}
	if got := decode[successResponse](t, rr); got.InsertedCount == nil || *got.InsertedCount != 2 {
		t.Errorf("bulk response = %s", rr.Body.String())
	}
	es, _ := store.List(context.Background(), time.Time{}, time.Time{})
	for _, e := range es {
		if !e.Date.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("record date = %v, want batch date", e.Date)
		}
	}

	rr = doJSON(t, srv, http.MethodPatch, "/api/expenses", `{"expenses":[]}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty batch = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPatch, "/api/expenses", `{"expenses":[{"amount":"1"},{"amount":"x"}]}`)
	if got := decode[errorResponse](t, rr); rr.Code != http.StatusBadRequest || got.Row != 2 || got.Field != "amount" {
		t.Errorf("bad row = %d %+v", rr.Code, got)
	}
	if store.Len() != 2 {
		t.Errorf("failed batch stored rows, len = %d", store.Len())
	}
}

func TestImportCSV(t *testing.T) {
	const doc = "Description,Amount,Category,Savings\nrent,500,Rent,0\ncoffee,3.5,,1\n"

	t.Run("raw body", func(t *testing.T) {
		srv, store := newTestServer(t)
		rr := do(t, srv, http.MethodPost, "/api/expenses/import?date=2024-04-01", strings.NewReader(doc), "text/csv")
		if rr.Code != http.StatusOK {
			t.Fatalf("import = %d %s", rr.Code, rr.Body.String())
		}
		if got := decode[successResponse](t, rr); got.InsertedCount == nil || *got.InsertedCount != 2 || store.Len() != 2 {
			t.Errorf("import response = %s", rr.Body.String())
		}
	})

	t.Run("multipart", func(t *testing.T) {
		srv, store := newTestServer(t)
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "expenses.csv")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte(doc))
		_ = mw.Close()

		rr := do(t, srv, http.MethodPost, "/api/expenses/import", &buf, mw.FormDataContentType())
		if rr.Code != http.StatusOK || store.Len() != 2 {
			t.Fatalf("multipart import = %d %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("missing file field", func(t *testing.T) {
		srv, _ := newTestServer(t)
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		_ = mw.WriteField("other", "x")
		_ = mw.Close()
		rr := do(t, srv, http.MethodPost, "/api/expenses/import", &buf, mw.FormDataContentType())
		if got := decode[errorResponse](t, rr); rr.Code != http.StatusBadRequest || got.Field != "file" {
			t.Errorf("missing file = %d %+v", rr.Code, got)
		}
	})

	t.Run("body too large", func(t *testing.T) {
		srv, _ := newTestServer(t, WithMaxBodyBytes(16))
		rr := do(t, srv, http.MethodPost, "/api/expenses/import", strings.NewReader(doc), "text/csv")
		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("oversized import = %d %s", rr.Code, rr.Body.String())
		}
	})
}

func TestSummaries(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, body := range []string{
		`{"amount":100,"category":"Rent","date":"2024-01-15"}`,
		`{"amount":"20.005","category":"Savings","saving":20,"date":"2024-01-20"}`,
		`{"amount":50,"category":"Rent","date":"2024-02-03"}`,
	} {
		if rr := doJSON(t, srv, http.MethodPost, "/api/expenses", body); rr.Code != http.StatusOK {
			t.Fatalf("seed = %d %s", rr.Code, rr.Body.String())
		}
	}

	rr := do(t, srv, http.MethodGet, "/api/summary?year=2024&month=1", nil, "")
	month := decode[report.Summary](t, rr)
	if month.Count != 2 || month.TotalAmount != 120.01 || month.TotalSaved != 20 {
		t.Errorf("month summary = %+v", month)
	}
	if len(month.Categories) != 2 || month.Categories[0].Key != "Rent" || month.Categories[1].Key != "Savings" {
		t.Errorf("categories = %+v", month.Categories)
	}

	rr = do(t, srv, http.MethodGet, "/api/summary/range?from=2024-01&to=2024-02", nil, "")
	rng := decode[report.Summary](t, rr)
	if rng.Count != 3 || len(rng.Months) != 2 || rng.Months[1].Amount != 50 {
		t.Errorf("range summary = %+v", rng)
	}

	if rr := do(t, srv, http.MethodGet, "/api/summary/range?from=2024-01", nil, ""); rr.Code != http.StatusBadRequest {
		t.Errorf("range without to = %d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/savings?year=2024&month=1", nil, "")
	if saved := decode[[]core.Expense](t, rr); len(saved) != 1 || saved[0].Saving != 20 {
		t.Errorf("savings = %+v", saved)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	if rr := do(t, srv, http.MethodPost, "/api/summary", nil, ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/summary = %d", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, WithRateLimit(2))
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = do(t, srv, http.MethodGet, "/healthz", nil, "")
	}
	if last.Code != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", last.Code)
	}
}
