package eventbus

import (
	"context"
	"time"

	"github.com/sqlspec/sqlspec/eventqueue"
)

// DurableBackend is the "durable" Event Backend: it delegates every
// operation straight to an eventqueue.Queue. It adds
// nothing of its own beyond satisfying Backend's signature (Dequeue's
// poll-then-sleep loop already lives in eventqueue.Queue.Dequeue).
type DurableBackend struct {
	Queue *eventqueue.Queue
}

// NewDurable wraps an already-constructed eventqueue.Queue as a Backend.
func NewDurable(q *eventqueue.Queue) *DurableBackend {
	return &DurableBackend{Queue: q}
}

func (d *DurableBackend) Publish(ctx context.Context, channel string, payload, metadata map[string]any) (string, error) {
	return d.Queue.Publish(ctx, channel, payload, metadata)
}

func (d *DurableBackend) Dequeue(ctx context.Context, channel string, pollInterval time.Duration) (*eventqueue.Message, error) {
	return d.Queue.Dequeue(ctx, channel, pollInterval)
}

func (d *DurableBackend) Ack(ctx context.Context, eventID string) error {
	return d.Queue.Ack(ctx, eventID)
}

func (d *DurableBackend) Nack(ctx context.Context, eventID string, delay time.Duration) error {
	return d.Queue.Nack(ctx, eventID, delay)
}

// Shutdown is a no-op: the durable backend holds no dedicated connection
// of its own, only the Session the caller already owns.
func (d *DurableBackend) Shutdown(ctx context.Context) error { return nil }

var _ Backend = (*DurableBackend)(nil)
