package core

import "github.com/shopspring/decimal"

// Totals is the result of aggregating a set of records.
type Totals struct {
	TotalAmount    float64            `json:"totalAmount"`
	TotalSaved     float64            `json:"totalSaved"`
	CategoryTotals map[string]float64 `json:"categoryTotals"`
	MonthlyTotals  map[string]float64 `json:"monthlyTotals"`
	Count          int                `json:"count"`
}

// Aggregate sums amounts and savings over records in one pass. Buckets exist
// only for categories and periods that occur in the input.
//
// Sums are accumulated as exact decimals, so the result is identical for any
// ordering of records. Records are assumed canonical.
func Aggregate(records []Expense) Totals {
	var (
		amount, saved decimal.Decimal
		byCategory    = make(map[string]decimal.Decimal)
		byPeriod      = make(map[string]decimal.Decimal)
	)
	for _, r := range records {
		a := decimal.NewFromFloat(r.Amount)
		amount = amount.Add(a)
		saved = saved.Add(decimal.NewFromFloat(r.Saving))
		byCategory[r.Category] = byCategory[r.Category].Add(a)
		key := PeriodKey(r.Date)
		byPeriod[key] = byPeriod[key].Add(a)
	}
	return Totals{
		TotalAmount:    amount.InexactFloat64(),
		TotalSaved:     saved.InexactFloat64(),
		CategoryTotals: toFloats(byCategory),
		MonthlyTotals:  toFloats(byPeriod),
		Count:          len(records),
	}
}

func toFloats(in map[string]decimal.Decimal) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v.InexactFloat64()
	}
	return out
}
