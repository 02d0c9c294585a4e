package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/sqlspec/sqlspec"
)

// fakeListenerConn is an in-memory listenerConn: Notify pushes a
// notification onto a channel that WaitForNotification drains, letting
// native/hybrid Dequeue logic be exercised without a real Postgres
// connection.
type fakeListenerConn struct {
	mu       sync.Mutex
	pending  chan *notification
	released bool
}

func newFakeListenerConn() *fakeListenerConn {
	return &fakeListenerConn{pending: make(chan *notification, 8)}
}

func (f *fakeListenerConn) Notify(n *notification) { f.pending <- n }

func (f *fakeListenerConn) WaitForNotification(ctx context.Context) (*notification, error) {
	select {
	case n := <-f.pending:
		return n, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeListenerConn) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = true
}

func TestNativeBackend_DequeueTimesOutWithNoMessage(t *testing.T) {
	n := &NativeBackend{channel: "orders", maxPayloadBytes: 8000, conn: newFakeListenerConn()}

	msg, err := n.Dequeue(context.Background(), "orders", 20*time.Millisecond)
	assert.NoError(t, err)
	assert.True(t, msg == nil)
}

func TestNativeBackend_DequeueDecodesNotification(t *testing.T) {
	conn := newFakeListenerConn()
	n := &NativeBackend{channel: "orders", maxPayloadBytes: 8000, conn: conn}

	data, err := encodeEnvelope("abc123", map[string]any{"k": float64(1)}, nil, time.Unix(0, 0))
	assert.NoError(t, err)
	conn.Notify(&notification{Channel: "orders", Payload: string(data)})

	msg, err := n.Dequeue(context.Background(), "orders", time.Second)
	assert.NoError(t, err)
	assert.True(t, msg != nil)
	assert.Equal(t, "abc123", msg.EventID)
	assert.Equal(t, map[string]any{"k": float64(1)}, msg.Payload)
	assert.Equal(t, 0, msg.Attempts)
	assert.Zero(t, msg.LeaseExpiresAt)
}

func TestNativeBackend_DequeueWrongChannelRejected(t *testing.T) {
	n := &NativeBackend{channel: "orders", maxPayloadBytes: 8000, conn: newFakeListenerConn()}

	_, err := n.Dequeue(context.Background(), "other", time.Second)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, sqlspec.ErrImproperConfiguration))
}

func TestNativeBackend_PublishRejectsWrongChannel(t *testing.T) {
	n := &NativeBackend{channel: "orders", maxPayloadBytes: 8000}

	_, err := n.Publish(context.Background(), "other", nil, nil)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, sqlspec.ErrImproperConfiguration))
}

func TestNativeBackend_PublishRejectsOversizedEnvelope(t *testing.T) {
	n := &NativeBackend{channel: "orders", maxPayloadBytes: 8}

	_, err := n.Publish(context.Background(), "orders", map[string]any{"k": "a long value that will not fit"}, nil)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, sqlspec.ErrPayloadTooLarge))
}

func TestNativeBackend_AckNackAreNoOps(t *testing.T) {
	n := &NativeBackend{channel: "orders", maxPayloadBytes: 8000}

	assert.NoError(t, n.Ack(context.Background(), "any-id"))
	assert.NoError(t, n.Nack(context.Background(), "any-id", time.Second))
}

func TestNativeBackend_ShutdownReleasesConnectionOnceIdempotently(t *testing.T) {
	conn := newFakeListenerConn()
	n := &NativeBackend{channel: "orders", maxPayloadBytes: 8000, conn: conn}

	assert.NoError(t, n.Shutdown(context.Background()))
	assert.True(t, conn.released)

	// Second Shutdown must not touch conn again (Release is not
	// idempotent-safe in real pgxpool.Conn, so the backend must guard it).
	assert.NoError(t, n.Shutdown(context.Background()))

	_, err := n.Dequeue(context.Background(), "orders", time.Millisecond)
	assert.Error(t, err)
}
