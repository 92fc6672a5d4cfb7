package http

import (
	"net/http"
)

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.svc.MonthSummary(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleRangeSummary serves ?from=YYYY-MM&to=YYYY-MM, both months included.
func (s *Server) handleRangeSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := requiredString(q, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := requiredString(q, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.svc.RangeSummary(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
