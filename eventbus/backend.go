// Package eventbus implements the three Event Backends of the Event
// Channel Core: native (LISTEN/NOTIFY fire-and-forget),
// durable (the table-backed eventqueue.Queue), and hybrid (durable
// storage woken by a native NOTIFY hint). All three satisfy the same
// Backend contract so Subscribe (in subscribe.go) drives any of them
// identically.
//
// native.go is written directly against jackc/pgx/v5's documented
// WaitForNotification API for LISTEN/NOTIFY.
package eventbus

import (
	"context"
	"time"

	"github.com/sqlspec/sqlspec/eventqueue"
)

// Backend is the contract every Event Backend (native, durable, hybrid)
// implements.
type Backend interface {
	// Publish hands payload/metadata to the backend under channel and
	// returns the generated event_id.
	Publish(ctx context.Context, channel string, payload, metadata map[string]any) (string, error)

	// Dequeue blocks up to pollInterval waiting for one eligible message,
	// returning (nil, nil) on timeout with nothing delivered.
	Dequeue(ctx context.Context, channel string, pollInterval time.Duration) (*eventqueue.Message, error)

	// Ack acknowledges successful handling of a message claimed via
	// Dequeue. A no-op for the native backend.
	Ack(ctx context.Context, eventID string) error

	// Nack returns a claimed message for redelivery after delay. A no-op
	// for the native backend.
	Nack(ctx context.Context, eventID string, delay time.Duration) error

	// Shutdown releases any dedicated subscribing connection. Idempotent.
	Shutdown(ctx context.Context) error
}

// AckDecision is the handler's verdict from Subscribe's loop: Ack or Nack
// (optionally with a redelivery delay).
type AckDecision struct {
	Ack   bool
	Delay time.Duration
}

// Acked is the zero-delay acknowledge decision.
func Acked() AckDecision { return AckDecision{Ack: true} }

// Nacked requests redelivery after delay.
func Nacked(delay time.Duration) AckDecision { return AckDecision{Ack: false, Delay: delay} }

// Handler processes one delivered Message and reports whether it should
// be acked or nacked.
type Handler func(ctx context.Context, msg *eventqueue.Message) AckDecision
