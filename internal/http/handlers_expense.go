package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"expensetracker/internal/core"
)

const multipartMemory = 1 << 20

type categoriesResponse struct {
	Categories []string `json:"categories"`
	Default    string   `json:"default"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	reg := s.svc.Registry()
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: reg.All(), Default: reg.Default()})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	es, err := s.svc.ListMonth(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(es))
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	es, err := s.svc.ListSavings(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(es))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.AddExpense(r.Context(), req.raw())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, ID: e.ID})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := requiredString(r.URL.Query(), "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.svc.UpdateExpense(r.Context(), id, req.raw()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, ID: id})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := requiredString(r.URL.Query(), "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteExpense(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// handleBulkAdd stores {"expenses": [...], "date": "YYYY-MM-DD"} as one
// batch sharing date.
func (s *Server) handleBulkAdd(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	batchDate, err := parseBatchDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.svc.BulkAdd(r.Context(), req.raw(), batchDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, InsertedCount: &n})
}

// handleImport accepts a CSV document as the raw body or as the multipart
// field "file". The optional date query parameter dates the whole batch.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	batchDate, err := parseBatchDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, closeBody, err := csvBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer closeBody()

	n, err := s.svc.ImportCSV(r.Context(), body, batchDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, InsertedCount: &n})
}

func csvBody(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.EqualFold(mediaType, "multipart/form-data") {
		return r.Body, func() {}, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, err
		}
		return nil, nil, &core.ValidationError{Field: "file", Reason: "malformed multipart body"}
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, &core.ValidationError{Field: "file", Reason: "is required"}
	}
	return f, func() {
		_ = f.Close()
		_ = r.MultipartForm.RemoveAll()
	}, nil
}

func nonNil(es []core.Expense) []core.Expense {
	if es == nil {
		return []core.Expense{}
	}
	return es
}
