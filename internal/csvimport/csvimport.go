// Package csvimport reads bulk expense text: a header row naming the
// columns followed by one expense per line.
package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"expensetracker/internal/core"
)

var (
	ErrNoHeader = errors.New("csv has no header row")
	ErrTooMany  = errors.New("csv has too many rows")
)

// Parse reads r into one map per data row keyed by header name. Header names
// and cells are trimmed; lines with only empty cells are skipped. Rows may be
// shorter than the header; missing cells are empty. limit <= 0 means no limit.
func Parse(r io.Reader, limit int) ([]map[string]string, error) {
	rows, _, err := ParseLines(r, limit)
	return rows, err
}

// ParseLines is Parse that also returns, for each row, the 1-based line of
// the file it starts on. The header is line 1.
func ParseLines(r io.Reader, limit int) ([]map[string]string, []int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrNoHeader
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var (
		rows  []map[string]string
		lines []int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		if blank(rec) {
			continue
		}
		if limit > 0 && len(rows) >= limit {
			return nil, nil, fmt.Errorf("%w: limit is %d", ErrTooMany, limit)
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(rec) {
				row[name] = strings.TrimSpace(rec[i])
			} else {
				row[name] = ""
			}
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, row)
		lines = append(lines, line)
	}
	return rows, lines, nil
}

// Rows converts parsed rows into raw expenses for the bulk normalizer.
func Rows(rows []map[string]string) []core.RawExpense {
	out := make([]core.RawExpense, len(rows))
	for i, row := range rows {
		out[i] = core.RawExpenseFromRow(row)
	}
	return out
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
