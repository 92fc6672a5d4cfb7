package core

import (
	"strings"
	"time"
)

// Normalizer turns raw input into canonical records. It holds no mutable
// state and is safe for concurrent use.
type Normalizer struct {
	Registry Registry
	// Now supplies the default date. Defaults to time.Now.
	Now func() time.Time
}

// NewNormalizer returns a Normalizer over the default registry.
func NewNormalizer() Normalizer {
	return Normalizer{Registry: DefaultRegistry(), Now: time.Now}
}

func (n Normalizer) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}

// Normalize validates a single record as submitted by the add and update
// paths. The category must match a registry entry exactly.
func (n Normalizer) Normalize(raw RawExpense) (Expense, error) {
	if !n.Registry.Contains(raw.Category) {
		return Expense{}, invalid("category", raw.Category, "invalid category")
	}
	e, err := n.coerce(raw)
	if err != nil {
		return Expense{}, err
	}
	if strings.TrimSpace(raw.Date) == "" {
		e.Date = n.now()
	} else {
		d, err := ParseDate(raw.Date)
		if err != nil {
			return Expense{}, err
		}
		e.Date = d
	}
	return e, nil
}

// NormalizeBulk validates an import batch. Unlike Normalize, a blank category
// falls back to the registry default; a non-blank unknown category still
// fails. Every row gets batchDate in UTC, whatever its own date cell says. A
// zero batchDate means now. The first failing row aborts the whole batch with
// a *RowError.
func (n Normalizer) NormalizeBulk(rows []RawExpense, batchDate time.Time) ([]Expense, error) {
	if batchDate.IsZero() {
		batchDate = n.now()
	}
	stamp := batchDate.UTC()

	out := make([]Expense, 0, len(rows))
	for i, raw := range rows {
		if strings.TrimSpace(raw.Category) == "" {
			raw.Category = n.Registry.Default()
		}
		if !n.Registry.Contains(raw.Category) {
			return nil, &RowError{Row: i + 1, Err: invalid("category", raw.Category, "invalid category")}
		}
		e, err := n.coerce(raw)
		if err != nil {
			return nil, &RowError{Row: i + 1, Err: err}
		}
		e.Date = stamp
		out = append(out, e)
	}
	return out, nil
}

// coerce handles the fields shared by both paths. raw.Category must already
// be valid.
func (n Normalizer) coerce(raw RawExpense) (Expense, error) {
	amount, err := ParseAmount("amount", raw.Amount)
	if err != nil {
		return Expense{}, err
	}
	var saving float64
	if strings.TrimSpace(raw.Saving) != "" {
		if saving, err = ParseAmount("saving", raw.Saving); err != nil {
			return Expense{}, err
		}
	}
	return Expense{
		Description: strings.TrimSpace(raw.Description),
		Amount:      amount,
		Category:    raw.Category,
		Saving:      saving,
	}, nil
}
