// Package worker mirrors stored expenses into the spreadsheet, driven by
// change events with a periodic pass over records still pending.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/sheets"
	"expensetracker/internal/storage"
)

// Source is the durable store the worker reads from.
type Source interface {
	Get(ctx context.Context, id string) (core.Expense, error)
	Version(ctx context.Context, id string) (int64, error)
	storage.SyncTracker
}

// EventSource delivers change events until its context ends.
type EventSource interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

type SyncWorker struct {
	store     Source
	mirror    sheets.Mirror
	batchSize int
	logger    *log.Logger
}

func NewSyncWorker(store Source, mirror sheets.Mirror, batchSize int, logger *log.Logger) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &SyncWorker{
		store:     store,
		mirror:    mirror,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes events from src and re-syncs pending records every interval
// until ctx is cancelled. src may be nil, leaving only the periodic pass.
func (w *SyncWorker) Run(ctx context.Context, src EventSource, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	if src != nil {
		g.Go(func() error {
			return src.Consume(ctx, w.HandleEvent)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if _, err := w.ProcessPending(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Pending sync pass failed", log.FieldError, err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	return g.Wait()
}

// HandleEvent applies one change event. Errors make the broker redeliver.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	w.logger.InfoContext(ctx, "Processing expense event", log.FieldExpenseID, ev.ID, "op", ev.Op)

	switch ev.Op {
	case amqp.OpDelete:
		if err := w.mirror.Remove(ctx, ev.ID); err != nil {
			return fmt.Errorf("remove %s from sheet: %w", ev.ID, err)
		}
		return nil
	case amqp.OpUpsert:
		err := w.syncOne(ctx, ev.ID)
		if errors.Is(err, core.ErrNotFound) {
			// Deleted before we got here; the delete event clears the row.
			w.logger.InfoContext(ctx, "Expense no longer exists, skipping", log.FieldExpenseID, ev.ID)
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown event op %q", ev.Op)
	}
}

// ProcessPending syncs up to one batch of pending records and returns how
// many succeeded. Records that fail are marked with a sync error.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.store.PendingSync(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	synced := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if err := w.syncVersion(ctx, p.ID, p.Version); err != nil {
			log.LogError(ctx, "Failed to sync expense", err, log.ComponentWorker, log.OpSync, log.FieldExpenseID, p.ID)
			if markErr := w.store.MarkSyncError(ctx, p.ID); markErr != nil {
				w.logger.ErrorContext(ctx, "Failed to mark sync error", log.FieldExpenseID, p.ID, log.FieldError, markErr)
			}
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Pending sync pass completed", "total", len(pending), "synced", synced)
	return synced, nil
}

func (w *SyncWorker) syncOne(ctx context.Context, id string) error {
	version, err := w.store.Version(ctx, id)
	if err != nil {
		return err
	}
	return w.syncVersion(ctx, id, version)
}

// syncVersion writes the record and marks version synced. A write that
// raced with a newer update leaves the record pending for the next pass.
func (w *SyncWorker) syncVersion(ctx context.Context, id string, version int64) error {
	e, err := w.store.Get(ctx, id)
	if err != nil {
		return err
	}
	ref, err := w.mirror.Upsert(ctx, id, e)
	if err != nil {
		return fmt.Errorf("upsert to sheet: %w", err)
	}
	if err := w.store.MarkSynced(ctx, id, version); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	w.logger.InfoContext(ctx, "Expense synced",
		log.NewFields().WithOperation(log.OpSync).WithExpense(id, e).ToSlice()...)
	w.logger.DebugContext(ctx, "Sheet row written", log.FieldExpenseID, id, "sheets_ref", ref)
	return nil
}
