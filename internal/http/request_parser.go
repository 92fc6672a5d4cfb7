package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"
)

// flexString accepts a JSON string, number or null. Form-driven clients
// send amounts either way.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

type expenseRequest struct {
	Description flexString `json:"description"`
	Amount      flexString `json:"amount"`
	Category    flexString `json:"category"`
	Saving      flexString `json:"saving"`
	Date        flexString `json:"date"`
}

func (e expenseRequest) raw() core.RawExpense {
	return core.RawExpense{
		Description: sanitizeInput(string(e.Description)),
		Amount:      sanitizeInput(string(e.Amount)),
		Category:    sanitizeInput(string(e.Category)),
		Saving:      sanitizeInput(string(e.Saving)),
		Date:        sanitizeInput(string(e.Date)),
	}
}

type bulkRequest struct {
	Expenses []expenseRequest `json:"expenses"`
	Date     string           `json:"date"`
}

func (b bulkRequest) raw() []core.RawExpense {
	rows := make([]core.RawExpense, len(b.Expenses))
	for i, e := range b.Expenses {
		rows[i] = e.raw()
	}
	return rows
}

// decodeJSON reads exactly one JSON value from the body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return &core.ValidationError{Field: "body", Reason: "must not be empty"}
		}
		return &core.ValidationError{Field: "body", Reason: "is not valid JSON: " + err.Error()}
	}
	if dec.More() {
		return &core.ValidationError{Field: "body", Reason: "must hold a single JSON value"}
	}
	return nil
}

// parseMonthParams reads the required year and month query parameters.
// Range checks are left to the service.
func parseMonthParams(q url.Values) (year, month int, err error) {
	year, err = requiredInt(q, "year")
	if err != nil {
		return 0, 0, err
	}
	month, err = requiredInt(q, "month")
	if err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

func requiredInt(q url.Values, key string) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, &core.ValidationError{Field: key, Reason: "is required"}
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &core.ValidationError{Field: key, Value: v, Reason: "must be an integer"}
	}
	return n, nil
}

func requiredString(q url.Values, key string) (string, error) {
	v := sanitizeInput(q.Get(key))
	if v == "" {
		return "", &core.ValidationError{Field: key, Reason: "is required"}
	}
	return v, nil
}

// parseBatchDate reads the shared date of a bulk batch. Blank means now,
// signalled by the zero time.
func parseBatchDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return core.ParseDate(s)
}
