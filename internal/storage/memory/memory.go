// Package memory is a process-local Store, used as the default backend and
// in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

type Store struct {
	mu    sync.Mutex
	items map[string]entry
	seq   int64
}

// entry remembers insertion order so ties on date list newest insert first.
type entry struct {
	e   core.Expense
	seq int64
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{items: make(map[string]entry)}
}

// NewWithExpenses seeds the store, assigning ids to records without one.
func NewWithExpenses(es []core.Expense) *Store {
	s := New()
	for _, e := range es {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		s.seq++
		s.items[e.ID] = entry{e: e, seq: s.seq}
	}
	return s
}

func (s *Store) List(_ context.Context, start, end time.Time) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]entry, 0, len(s.items))
	for _, it := range s.items {
		if !start.IsZero() && it.e.Date.Before(start) {
			continue
		}
		if !end.IsZero() && !it.e.Date.Before(end) {
			continue
		}
		matched = append(matched, it)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].e.Date.Equal(matched[j].e.Date) {
			return matched[i].e.Date.After(matched[j].e.Date)
		}
		return matched[i].seq > matched[j].seq
	})

	out := make([]core.Expense, len(matched))
	for i, it := range matched {
		out[i] = it.e
	}
	return out, nil
}

func (s *Store) Get(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return it.e, nil
}

func (s *Store) Insert(_ context.Context, e core.Expense) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(e), nil
}

func (s *Store) InsertMany(_ context.Context, es []core.Expense) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(es))
	for _, e := range es {
		ids = append(ids, s.insertLocked(e))
	}
	return ids, nil
}

func (s *Store) insertLocked(e core.Expense) string {
	e.ID = uuid.NewString()
	s.seq++
	s.items[e.ID] = entry{e: e, seq: s.seq}
	return e.ID
}

func (s *Store) Update(_ context.Context, id string, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return core.ErrNotFound
	}
	e.ID = id
	it.e = e
	s.items[id] = it
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) Close() error { return nil }

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
