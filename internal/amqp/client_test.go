package amqp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{-1, 1 * time.Second},
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{64, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("connection refused"), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"amqp closed", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"other error", errors.New("some other error"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("Circuit breaker should be closed initially")
		}
	})

	t.Run("multiple failures open circuit", func(t *testing.T) {
		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		if !client.isCircuitOpen() {
			t.Error("Circuit breaker should be open after max failures")
		}
	})

	t.Run("record success resets state", func(t *testing.T) {
		client.recordSuccess()
		if client.isCircuitOpen() {
			t.Error("Circuit breaker should be closed after success")
		}
		if atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("Failure count should be reset to 0 after success")
		}
	})

	t.Run("circuit transitions to half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)

		if client.isCircuitOpen() {
			t.Error("Circuit should allow a trial call after the timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("State should be StateHalfOpen after timeout")
		}
	})

	t.Run("failure while half-open reopens", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateHalfOpen)
		atomic.StoreInt64(&client.failureCount, 0)
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("State should be StateOpen after a failed trial call")
		}
	})
}

func TestClient_PublishEventGuards(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}
	ev := NewExpenseEvent("abc", OpUpsert)

	t.Run("publish fails when circuit is open", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.PublishEvent(context.Background(), ev)
		if !errors.Is(err, ErrCircuitOpen) {
			t.Errorf("PublishEvent error = %v, want ErrCircuitOpen", err)
		}
	})

	t.Run("publish respects context cancellation", func(t *testing.T) {
		client.recordSuccess()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.PublishEvent(ctx, ev); err != context.Canceled {
			t.Errorf("PublishEvent error = %v, want context.Canceled", err)
		}
	})
}

func TestExpenseEvent_JSON(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ev := &ExpenseEvent{ID: "3f0c", Op: OpDelete, Timestamp: ts}

	data, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	if !strings.Contains(string(data), `"op":"delete"`) {
		t.Errorf("ToJSON() = %s, missing op", data)
	}

	parsed, err := ExpenseEventFromJSON(data)
	if err != nil {
		t.Fatalf("ExpenseEventFromJSON() error = %v", err)
	}
	if parsed.ID != ev.ID || parsed.Op != ev.Op || !parsed.Timestamp.Equal(ts) {
		t.Errorf("parsed = %+v, want %+v", parsed, ev)
	}
}

func TestExpenseEventFromJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"id":`},
		{"wrong id type", `{"id": 12, "op": "upsert"}`},
		{"missing id", `{"op": "upsert"}`},
		{"unknown op", `{"id": "abc", "op": "merge"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExpenseEventFromJSON([]byte(tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewExpenseEvent(t *testing.T) {
	ev := NewExpenseEvent("abc", OpUpsert)
	if ev.Validate() != nil {
		t.Errorf("new event invalid: %v", ev.Validate())
	}
	if time.Since(ev.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

type recordingAcker struct {
	err     error
	acked   int
	nacked  int
	requeue bool
}

func (a *recordingAcker) Ack(tag uint64, multiple bool) error {
	a.acked++
	return a.err
}

func (a *recordingAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return a.err
}

func (a *recordingAcker) Reject(tag uint64, requeue bool) error { return a.err }

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestClient_HandleDelivery(t *testing.T) {
	body, _ := NewExpenseEvent("abc", OpUpsert).ToJSON()
	ok := func(context.Context, *ExpenseEvent) error { return nil }
	fail := func(context.Context, *ExpenseEvent) error { return errors.New("sheet down") }

	tests := []struct {
		name        string
		body        []byte
		handler     Handler
		wantAck     int
		wantNack    int
		wantRequeue bool
	}{
		{"handled", body, ok, 1, 0, false},
		{"handler error requeues", body, fail, 0, 1, true},
		{"malformed is dropped", []byte(`{"id":`), ok, 0, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureLogs(t)
			acker := &recordingAcker{}
			c := &Client{}
			c.handleDelivery(context.Background(), amqp091.Delivery{Acknowledger: acker, Body: tt.body}, tt.handler)
			if acker.acked != tt.wantAck || acker.nacked != tt.wantNack || acker.requeue != tt.wantRequeue {
				t.Errorf("ack=%d nack=%d requeue=%v", acker.acked, acker.nacked, acker.requeue)
			}
		})
	}
}

func TestClient_HandleDeliveryLogsSettleFailure(t *testing.T) {
	body, _ := NewExpenseEvent("abc", OpUpsert).ToJSON()
	for _, action := range []string{"ack", "requeue", "nack"} {
		t.Run(action, func(t *testing.T) {
			buf := captureLogs(t)
			acker := &recordingAcker{err: amqp091.ErrClosed}
			handler := func(context.Context, *ExpenseEvent) error { return nil }
			d := amqp091.Delivery{Acknowledger: acker, Body: body, DeliveryTag: 7}
			switch action {
			case "requeue":
				handler = func(context.Context, *ExpenseEvent) error { return errors.New("boom") }
			case "nack":
				d.Body = []byte("not json")
			}

			(&Client{}).handleDelivery(context.Background(), d, handler)

			out := buf.String()
			if !strings.Contains(out, "Failed to settle delivery") ||
				!strings.Contains(out, `"action":"`+action+`"`) ||
				!strings.Contains(out, `"delivery_tag":7`) {
				t.Errorf("missing settle failure log: %s", out)
			}
		})
	}
}
