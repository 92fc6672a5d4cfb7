package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event operations.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// ExpenseEvent tells the sync worker that a record changed. It carries only
// the id; the worker reads the record itself so stale events are harmless.
type ExpenseEvent struct {
	ID        string    `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEvent creates an event stamped with the current time.
func NewExpenseEvent(id, op string) *ExpenseEvent {
	return &ExpenseEvent{ID: id, Op: op, Timestamp: time.Now().UTC()}
}

// Validate reports malformed events.
func (e *ExpenseEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event has no expense id")
	}
	if e.Op != OpUpsert && e.Op != OpDelete {
		return fmt.Errorf("unknown event op %q", e.Op)
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON decodes and validates an event.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var ev ExpenseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
