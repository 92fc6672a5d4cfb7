// Package storage holds the record store behind the expense core. The core
// never sees a connection: it is handed already fetched records.
package storage

import (
	"context"
	"time"

	"expensetracker/internal/core"
)

// Store is the CRUD contract of a record store. Update, Delete and Get
// return core.ErrNotFound for unknown ids.
type Store interface {
	// List returns the records dated in [start, end), newest first. A zero
	// bound is open.
	List(ctx context.Context, start, end time.Time) ([]core.Expense, error)
	Get(ctx context.Context, id string) (core.Expense, error)
	Insert(ctx context.Context, e core.Expense) (string, error)
	// InsertMany stores es atomically and returns their ids in order.
	InsertMany(ctx context.Context, es []core.Expense) ([]string, error)
	// Update replaces every field of the record with id.
	Update(ctx context.Context, id string, e core.Expense) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// SyncTracker is implemented by stores that track mirroring to an external
// sheet.
type SyncTracker interface {
	PendingSync(ctx context.Context, limit int) ([]PendingSyncExpense, error)
	MarkSynced(ctx context.Context, id string, version int64) error
	MarkSyncError(ctx context.Context, id string) error
}

// PendingSyncExpense is the minimal data needed to enqueue a sync.
type PendingSyncExpense struct {
	ID        string
	Version   int64
	UpdatedAt time.Time
}

// utcLayout is fixed width so stored UTC timestamps sort lexicographically.
const utcLayout = "2006-01-02T15:04:05.000000000Z"

func formatUTC(t time.Time) string {
	return t.UTC().Format(utcLayout)
}
