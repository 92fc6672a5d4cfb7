package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/core"

	_ "modernc.org/sqlite"
)

const selectColumns = `SELECT id, description, amount, category, saving, date FROM expenses`

// SQLiteRepository is the durable Store.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ Store       = (*SQLiteRepository)(nil)
	_ SyncTracker = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// List implements Store.
func (r *SQLiteRepository) List(ctx context.Context, start, end time.Time) ([]core.Expense, error) {
	var (
		where []string
		args  []any
	)
	if !start.IsZero() {
		where = append(where, "date_utc >= ?")
		args = append(args, formatUTC(start))
	}
	if !end.IsZero() {
		where = append(where, "date_utc < ?")
		args = append(args, formatUTC(end))
	}
	q := selectColumns
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY date_utc DESC, rowid DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// Get implements Store.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	return e, err
}

// Insert implements Store.
func (r *SQLiteRepository) Insert(ctx context.Context, e core.Expense) (string, error) {
	id := uuid.NewString()
	if err := insertExpense(ctx, r.db, id, e); err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"category", e.Category,
		"amount", e.Amount,
		"saving", e.Saving)

	return id, nil
}

// InsertMany implements Store. The batch is written in one transaction.
func (r *SQLiteRepository) InsertMany(ctx context.Context, es []core.Expense) ([]string, error) {
	if len(es) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, len(es))
	for i, e := range es {
		ids[i] = uuid.NewString()
		if err := insertExpense(ctx, tx, ids[i], e); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Expense batch saved to SQLite", "count", len(ids))
	return ids, nil
}

// Update implements Store. Every update bumps the version and marks the
// record pending for the sheet mirror.
func (r *SQLiteRepository) Update(ctx context.Context, id string, e core.Expense) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET description = ?, amount = ?, category = ?, saving = ?, date = ?, date_utc = ?,
		    version = version + 1, sync_status = 'pending', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		e.Description, e.Amount, e.Category, e.Saving, formatDate(e.Date), formatUTC(e.Date), id)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return expectOne(res)
}

// Delete implements Store.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if err := expectOne(res); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Expense deleted from SQLite", "id", id)
	return nil
}

// PendingSync returns records not yet mirrored, oldest change first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]PendingSyncExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, updated_at FROM expenses
		WHERE sync_status = 'pending'
		ORDER BY updated_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncExpense
	for rows.Next() {
		var (
			p         PendingSyncExpense
			updatedAt string
		)
		if err := rows.Scan(&p.ID, &p.Version, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan pending expense: %w", err)
		}
		p.UpdatedAt = parseTimestamp(updatedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced marks the record synced unless it changed after version.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE expenses SET sync_status = 'synced', synced_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`, id, version)
	if err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}

	slog.InfoContext(ctx, "Expense marked as synced", "id", id, "version", version)
	return nil
}

// MarkSyncError takes the record out of the pending queue.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE expenses SET sync_status = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}

	slog.WarnContext(ctx, "Expense marked with sync error", "id", id)
	return nil
}

// Version returns the current version of a record.
func (r *SQLiteRepository) Version(ctx context.Context, id string) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM expenses WHERE id = ?`, id).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, core.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get expense version: %w", err)
	}
	return v, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func insertExpense(ctx context.Context, db execer, id string, e core.Expense) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO expenses (id, description, amount, category, saving, date, date_utc)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, e.Description, e.Amount, e.Category, e.Saving, formatDate(e.Date), formatUTC(e.Date))
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e    core.Expense
		date string
	)
	if err := s.Scan(&e.ID, &e.Description, &e.Amount, &e.Category, &e.Saving, &date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, err
		}
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	e.Date = t
	return e, nil
}

// formatDate keeps the record's own offset so a read returns what was written.
func formatDate(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// parseTimestamp reads CURRENT_TIMESTAMP values, which the driver may hand
// back either raw or already formatted as RFC 3339.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
