// Package backend opens the record store and the optional event publisher
// selected by configuration.
package backend

import (
	"context"
	"errors"

	"expensetracker/internal/amqp"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

// Type names a record store implementation.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	SQLiteDBPath string

	// AMQP is optional. An empty URL disables change events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// Backend bundles the opened resources. Repository and AMQP are nil when the
// configuration does not use them.
type Backend struct {
	Type       Type
	Store      storage.Store
	Repository *storage.SQLiteRepository
	AMQP       *amqp.Client
}

// Publisher returns the event publisher, or nil when AMQP is disabled. The
// untyped nil keeps services from calling a nil client.
func (b *Backend) Publisher() services.Publisher {
	if b.AMQP == nil {
		return nil
	}
	return b.AMQP
}

// Ping reports whether the store is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	if b.Repository != nil {
		return b.Repository.Ping(ctx)
	}
	return nil
}

// Close releases the publisher and the store.
func (b *Backend) Close() error {
	var errs []error
	if b.AMQP != nil {
		errs = append(errs, b.AMQP.Close())
	}
	if b.Store != nil {
		errs = append(errs, b.Store.Close())
	}
	return errors.Join(errs...)
}
