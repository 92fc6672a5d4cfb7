// Package report turns aggregated totals into display-ready summaries:
// two-decimal rounding, net savings, and stable line ordering.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

type (
	// Line is one bucket of a summary.
	Line struct {
		Key       string  `json:"key"`
		Amount    float64 `json:"amount"`
		Formatted string  `json:"formatted"`
	}

	// Summary is what the dashboard renders for a period.
	Summary struct {
		From        string  `json:"from"`
		To          string  `json:"to"`
		Count       int     `json:"count"`
		TotalAmount float64 `json:"totalAmount"`
		TotalSaved  float64 `json:"totalSaved"`
		NetSavings  float64 `json:"netSavings"`
		Categories  []Line  `json:"categories"`
		Months      []Line  `json:"months"`
	}
)

// Build rounds totals for display. Categories follow the registry display
// order; months ascend. from and to name the covered periods.
func Build(t core.Totals, reg core.Registry, from, to time.Time) Summary {
	s := Summary{
		From:        core.PeriodKey(from),
		To:          core.PeriodKey(to),
		Count:       t.Count,
		TotalAmount: Round(t.TotalAmount),
		TotalSaved:  Round(t.TotalSaved),
		NetSavings:  NetSavings(t),
		Categories:  make([]Line, 0, len(t.CategoryTotals)),
		Months:      make([]Line, 0, len(t.MonthlyTotals)),
	}

	for name, amount := range t.CategoryTotals {
		s.Categories = append(s.Categories, newLine(name, amount))
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		a, b := reg.Index(s.Categories[i].Key), reg.Index(s.Categories[j].Key)
		if a != b {
			return a < b
		}
		return s.Categories[i].Key < s.Categories[j].Key
	})

	for key, amount := range t.MonthlyTotals {
		s.Months = append(s.Months, newLine(key, amount))
	}
	sort.Slice(s.Months, func(i, j int) bool { return s.Months[i].Key < s.Months[j].Key })

	return s
}

// NetSavings is total saved minus total spent, rounded.
func NetSavings(t core.Totals) float64 {
	net := decimal.NewFromFloat(t.TotalSaved).Sub(decimal.NewFromFloat(t.TotalAmount))
	return net.Round(2).InexactFloat64()
}

// Round rounds half away from zero to two decimal places.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// FormatAmount renders v with exactly two decimals, e.g. "12.50".
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func newLine(key string, amount float64) Line {
	return Line{Key: key, Amount: Round(amount), Formatted: FormatAmount(amount)}
}
