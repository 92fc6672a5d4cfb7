// Package sheets defines the spreadsheet mirror the sync worker writes to.
package sheets

import (
	"context"

	"expensetracker/internal/core"
)

type (
	// ExpenseWriter writes one record to the mirror, replacing any row that
	// already carries its id.
	ExpenseWriter interface {
		Upsert(ctx context.Context, id string, e core.Expense) (rowRef string, err error)
	}

	// ExpenseRemover clears the row of a deleted record. Unknown ids are
	// not an error.
	ExpenseRemover interface {
		Remove(ctx context.Context, id string) error
	}

	Mirror interface {
		ExpenseWriter
		ExpenseRemover
	}
)
