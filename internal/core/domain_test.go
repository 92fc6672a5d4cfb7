package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestRawExpenseFromRow(t *testing.T) {
	raw := RawExpenseFromRow(map[string]string{
		"Description": "lunch",
		"AMOUNT":      "12.5",
		" category ":  "Basic Food",
		"savings":     "2",
		"date":        "2024-01-15",
		"extra":       "ignored",
	})
	want := RawExpense{Description: "lunch", Amount: "12.5", Category: "Basic Food", Saving: "2", Date: "2024-01-15"}
	if raw != want {
		t.Fatalf("got %+v, want %+v", raw, want)
	}
}

func TestExpenseValidate(t *testing.T) {
	reg := DefaultRegistry()
	good := Expense{Amount: 10, Category: "Rent", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := good.Validate(reg); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Amount: 10, Category: "Nope", Date: good.Date},
		{Amount: -1, Category: "Rent", Date: good.Date},
		{Amount: 1, Saving: -1, Category: "Rent", Date: good.Date},
		{Amount: 1, Category: "Rent"},
		{Amount: math.Inf(1), Category: "Rent", Date: good.Date},
		{Amount: math.NaN(), Category: "Rent", Date: good.Date},
		{Amount: 1, Saving: math.Inf(1), Category: "Rent", Date: good.Date},
	}
	for i, e := range bads {
		err := e.Validate(reg)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestRowErrorUnwraps(t *testing.T) {
	err := error(&RowError{Row: 3, Err: invalid("amount", "x", "must be a number")})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("RowError should unwrap to ErrValidation")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "amount" {
		t.Fatalf("expected amount field, got %v", err)
	}
	if err.Error() != `row 3: amount: must be a number ("x")` {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
