package csvimport

import (
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	in := "\ufeffdescription, amount ,category\n" +
		"coffee, 3.50,Dessert\n" +
		"\n" +
		",,\n" +
		"\"taxi, late\",12,\n" +
		"short\n"

	rows, err := Parse(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %v", len(rows), rows)
	}
	if rows[0]["description"] != "coffee" || rows[0]["amount"] != "3.50" || rows[0]["category"] != "Dessert" {
		t.Fatalf("row 0 = %v", rows[0])
	}
	if rows[1]["description"] != "taxi, late" || rows[1]["category"] != "" {
		t.Fatalf("row 1 = %v", rows[1])
	}
	if rows[2]["description"] != "short" || rows[2]["amount"] != "" {
		t.Fatalf("row 2 = %v", rows[2])
	}

	raws := Rows(rows)
	if raws[0].Amount != "3.50" || raws[1].Description != "taxi, late" {
		t.Fatalf("Rows = %+v", raws)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(strings.NewReader(""), 0); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("empty input: %v", err)
	}
	if _, err := Parse(strings.NewReader("a\n\"unterminated\n"), 0); err == nil {
		t.Fatalf("expected csv syntax error")
	}
	in := "amount\n1\n2\n3\n"
	if _, err := Parse(strings.NewReader(in), 2); !errors.Is(err, ErrTooMany) {
		t.Fatalf("limit: %v", err)
	}
	if rows, err := Parse(strings.NewReader(in), 3); err != nil || len(rows) != 3 {
		t.Fatalf("at limit: %v %v", rows, err)
	}
}

func TestParseHeaderOnly(t *testing.T) {
	rows, err := Parse(strings.NewReader("description,amount\n"), 0)
	if err != nil || len(rows) != 0 {
		t.Fatalf("rows=%v err=%v", rows, err)
	}
}

func TestParseLines(t *testing.T) {
	in := "description,amount\n" +
		"a,1\n" +
		"\n" +
		",\n" +
		"\"multi\nline\",2\n" +
		"c,3\n"

	rows, lines, err := ParseLines(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("ParseLines: %v", err)
	}
	want := []int{2, 5, 7}
	if len(rows) != len(want) || len(lines) != len(want) {
		t.Fatalf("rows=%v lines=%v", rows, lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("lines = %v, want %v", lines, want)
		}
	}
	if rows[1]["description"] != "multi\nline" {
		t.Fatalf("row 1 = %v", rows[1])
	}
}
