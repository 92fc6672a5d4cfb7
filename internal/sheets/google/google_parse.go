package google

import (
	"fmt"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/report"
)

// Mirror layout, one record per row with the id in column A.
var header = []any{"ID", "Date", "Description", "Category", "Amount", "Saving"}

const lastColumn = "F"

// rowValues renders e as a sheet row. Amounts are rounded for display.
func rowValues(id string, e core.Expense) []any {
	return []any{
		id,
		e.Date.Format("2006-01-02"),
		e.Description,
		e.Category,
		report.Round(e.Amount),
		report.Round(e.Saving),
	}
}

// findRowByID returns the 1-based sheet row whose first cell is id, or 0.
// values is the A column as returned by the Sheets API.
func findRowByID(values [][]any, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}

// hasHeader reports whether the first row of values is the mirror header.
func hasHeader(values [][]any) bool {
	if len(values) == 0 || len(values[0]) == 0 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(fmt.Sprint(values[0][0])), "ID")
}

// quoteSheet quotes a sheet name for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func columnRange(sheet string) string {
	return quoteSheet(sheet) + "!A:A"
}

func tableRange(sheet string) string {
	return fmt.Sprintf("%s!A:%s", quoteSheet(sheet), lastColumn)
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(sheet), row, lastColumn, row)
}
