package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	// Expense is a canonical record: it has passed normalization and is safe
	// to store and aggregate.
	Expense struct {
		ID          string    `json:"id,omitempty"`
		Description string    `json:"description"`
		Amount      float64   `json:"amount"`
		Category    string    `json:"category"`
		Saving      float64   `json:"saving"`
		Date        time.Time `json:"date"`
	}

	// RawExpense is loosely typed input as it arrives from a form, a JSON
	// body or a CSV row. Every field is text; empty means "not supplied".
	RawExpense struct {
		Description string
		Amount      string
		Category    string
		Saving      string
		Date        string
	}
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("expense not found")
)

// ValidationError reports the field that failed normalization.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s (%q)", e.Field, e.Reason, e.Value)
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// RowError locates a ValidationError inside a bulk batch. Row is 1-based;
// CSV imports report the line of the document instead.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

func invalid(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// RawExpenseFromRow maps a parsed CSV row onto a RawExpense. Header names
// are matched case-insensitively; unknown columns are ignored.
func RawExpenseFromRow(row map[string]string) RawExpense {
	var raw RawExpense
	for k, v := range row {
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "description":
			raw.Description = v
		case "amount":
			raw.Amount = v
		case "category":
			raw.Category = v
		case "saving", "savings":
			raw.Saving = v
		case "date":
			raw.Date = v
		}
	}
	return raw
}

// Validate re-checks the canonical invariants of an already built record,
// for records that did not come through the Normalizer.
func (e Expense) Validate(reg Registry) error {
	if !reg.Contains(e.Category) {
		return invalid("category", e.Category, "invalid category")
	}
	if e.Amount < 0 {
		return invalid("amount", "", "must not be negative")
	}
	if !finiteAmount(e.Amount) {
		return invalid("amount", "", "must be a finite number")
	}
	if e.Saving < 0 {
		return invalid("saving", "", "must not be negative")
	}
	if !finiteAmount(e.Saving) {
		return invalid("saving", "", "must be a finite number")
	}
	if e.Date.IsZero() {
		return invalid("date", "", "date cannot be zero")
	}
	return nil
}
