// Package services holds the expense use cases shared by the HTTP server and
// the import command.
package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/csvimport"
	"expensetracker/internal/log"
	"expensetracker/internal/report"
	"expensetracker/internal/storage"
)

// Publisher announces changed records to the sync worker.
type Publisher interface {
	PublishEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// ExpenseService validates input, writes through the store and keeps the
// summary cache and the event stream consistent with every write.
type ExpenseService struct {
	store         storage.Store
	publisher     Publisher
	normalizer    core.Normalizer
	summaries     cache.Cache[report.Summary]
	maxImportRows int
	logger        *log.Logger
}

type Option func(*ExpenseService)

// WithPublisher enables change events. A nil publisher disables them.
func WithPublisher(p Publisher) Option {
	return func(s *ExpenseService) { s.publisher = p }
}

// WithSummaryCache caches month summaries.
func WithSummaryCache(c cache.Cache[report.Summary]) Option {
	return func(s *ExpenseService) { s.summaries = c }
}

// WithMaxImportRows bounds CSV imports. n <= 0 means unbounded.
func WithMaxImportRows(n int) Option {
	return func(s *ExpenseService) { s.maxImportRows = n }
}

func WithNormalizer(n core.Normalizer) Option {
	return func(s *ExpenseService) { s.normalizer = n }
}

func WithLogger(l *log.Logger) Option {
	return func(s *ExpenseService) { s.logger = l }
}

func NewExpenseService(store storage.Store, opts ...Option) *ExpenseService {
	s := &ExpenseService{
		store:      store,
		normalizer: core.NewNormalizer(),
		logger:     log.FromContext(context.Background()).WithComponent(log.ComponentExpense),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the category registry used for validation.
func (s *ExpenseService) Registry() core.Registry {
	return s.normalizer.Registry
}

// AddExpense validates and stores a single record.
func (s *ExpenseService) AddExpense(ctx context.Context, raw core.RawExpense) (core.Expense, error) {
	e, err := s.normalizer.Normalize(raw)
	if err != nil {
		return core.Expense{}, err
	}
	id, err := s.store.Insert(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id

	s.invalidate()
	s.publish(ctx, id, amqp.OpUpsert)
	s.logger.InfoContext(ctx, "Expense created", log.NewFields().WithOperation(log.OpCreate).WithExpense(id, e).ToSlice()...)
	return e, nil
}

// BulkAdd validates rows as one batch dated batchDate and stores them all or
// none. A zero batchDate means now.
func (s *ExpenseService) BulkAdd(ctx context.Context, rows []core.RawExpense, batchDate time.Time) (int, error) {
	if len(rows) == 0 {
		return 0, &core.ValidationError{Field: "expenses", Reason: "must not be empty"}
	}
	es, err := s.normalizer.NormalizeBulk(rows, batchDate)
	if err != nil {
		return 0, err
	}
	ids, err := s.store.InsertMany(ctx, es)
	if err != nil {
		return 0, fmt.Errorf("save expense batch: %w", err)
	}

	s.invalidate()
	for _, id := range ids {
		s.publish(ctx, id, amqp.OpUpsert)
	}
	s.logger.InfoContext(ctx, "Expense batch created", log.FieldOperation, log.OpBulk, log.FieldCount, len(ids))
	return len(ids), nil
}

// ImportCSV reads a CSV document and stores it through BulkAdd. A failing
// row is reported by its line in the document, the header being line 1.
func (s *ExpenseService) ImportCSV(ctx context.Context, r io.Reader, batchDate time.Time) (int, error) {
	rows, lines, err := csvimport.ParseLines(r, s.maxImportRows)
	var parseErr *csv.ParseError
	switch {
	case errors.Is(err, csvimport.ErrNoHeader), errors.Is(err, csvimport.ErrTooMany):
		return 0, &core.ValidationError{Field: "file", Reason: err.Error()}
	case errors.As(err, &parseErr):
		return 0, &core.ValidationError{Field: "file", Reason: "is not valid CSV: " + parseErr.Error()}
	case err != nil:
		return 0, fmt.Errorf("import csv: %w", err)
	}
	n, err := s.BulkAdd(ctx, csvimport.Rows(rows), batchDate)
	var rowErr *core.RowError
	if errors.As(err, &rowErr) && rowErr.Row >= 1 && rowErr.Row <= len(lines) {
		return 0, &core.RowError{Row: lines[rowErr.Row-1], Err: rowErr.Err}
	}
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "CSV imported", log.FieldOperation, log.OpImport, log.FieldCount, n)
	return n, nil
}

// UpdateExpense replaces the record id with a freshly validated one.
func (s *ExpenseService) UpdateExpense(ctx context.Context, id string, raw core.RawExpense) (core.Expense, error) {
	e, err := s.normalizer.Normalize(raw)
	if err != nil {
		return core.Expense{}, err
	}
	if err := s.store.Update(ctx, id, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", id, err)
	}
	e.ID = id

	s.invalidate()
	s.publish(ctx, id, amqp.OpUpsert)
	s.logger.InfoContext(ctx, "Expense updated", log.NewFields().WithOperation(log.OpUpdate).WithExpense(id, e).ToSlice()...)
	return e, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	s.invalidate()
	s.publish(ctx, id, amqp.OpDelete)
	s.logger.InfoContext(ctx, "Expense deleted", log.FieldOperation, log.OpDelete, log.FieldExpenseID, id)
	return nil
}

// ListMonth returns the records of one calendar month, newest first.
func (s *ExpenseService) ListMonth(ctx context.Context, year, month int) ([]core.Expense, error) {
	if err := checkMonth(year, month); err != nil {
		return nil, err
	}
	start, end := core.MonthRange(year, month)
	es, err := s.store.List(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return es, nil
}

// ListSavings returns the records of a month that put money aside.
func (s *ExpenseService) ListSavings(ctx context.Context, year, month int) ([]core.Expense, error) {
	es, err := s.ListMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(es))
	for _, e := range es {
		if e.Saving > 0 {
			out = append(out, e)
		}
	}
	return out, nil
}

// MonthSummary aggregates one calendar month.
func (s *ExpenseService) MonthSummary(ctx context.Context, year, month int) (report.Summary, error) {
	if err := checkMonth(year, month); err != nil {
		return report.Summary{}, err
	}
	start, end := core.MonthRange(year, month)
	key := core.PeriodKey(start)
	if s.summaries != nil {
		if sum, ok := s.summaries.Get(key); ok {
			return sum, nil
		}
	}

	es, err := s.store.List(ctx, start, end)
	if err != nil {
		return report.Summary{}, fmt.Errorf("list expenses: %w", err)
	}
	sum := report.Build(core.Aggregate(es), s.Registry(), start, start)
	if s.summaries != nil {
		s.summaries.Set(key, sum)
	}
	return sum, nil
}

// RangeSummary aggregates the months from through to inclusive, both given
// as "YYYY-MM".
func (s *ExpenseService) RangeSummary(ctx context.Context, from, to string) (report.Summary, error) {
	start, err := core.ParsePeriod(from)
	if err != nil {
		return report.Summary{}, err
	}
	last, err := core.ParsePeriod(to)
	if err != nil {
		return report.Summary{}, err
	}
	if last.Before(start) {
		return report.Summary{}, &core.ValidationError{Field: "to", Value: to, Reason: "must not be before from"}
	}

	es, err := s.store.List(ctx, start, last.AddDate(0, 1, 0))
	if err != nil {
		return report.Summary{}, fmt.Errorf("list expenses: %w", err)
	}
	return report.Build(core.Aggregate(es), s.Registry(), start, last), nil
}

func checkMonth(year, month int) error {
	if month < 1 || month > 12 {
		return &core.ValidationError{Field: "month", Value: fmt.Sprint(month), Reason: "must be between 1 and 12"}
	}
	if year < 1 || year > 9999 {
		return &core.ValidationError{Field: "year", Value: fmt.Sprint(year), Reason: "must be between 1 and 9999"}
	}
	return nil
}

// invalidate drops all cached summaries. An update may move a record to
// another month, so single-key eviction is not enough.
func (s *ExpenseService) invalidate() {
	if s.summaries != nil {
		s.summaries.Purge()
	}
}

// publish announces a change. The write already succeeded, so failures are
// only logged; the worker's pending pass picks the record up later.
func (s *ExpenseService) publish(ctx context.Context, id, op string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, amqp.NewExpenseEvent(id, op)); err != nil {
		log.LogError(ctx, "Failed to publish expense event", err, log.ComponentAMQP, log.OpPublish, log.FieldExpenseID, id)
	}
}
