package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/sqlspec/sqlspec/sqlvalue"
)

func TestHybridBackend_WaitForWakeupReturnsEarlyOnNotification(t *testing.T) {
	conn := newFakeListenerConn()
	conn.Notify(&notification{Channel: "orders", Payload: `{"event_id":"e1"}`})

	h := &HybridBackend{channel: "orders", conn: conn}

	start := time.Now()
	h.waitForWakeup(context.Background(), 5*time.Second)
	elapsed := time.Since(start)

	// Woke immediately on notification, not after the full pollInterval.
	assert.True(t, elapsed < time.Second)
}

func TestHybridBackend_WaitForWakeupTimesOutWithoutNotification(t *testing.T) {
	conn := newFakeListenerConn()
	h := &HybridBackend{channel: "orders", conn: conn}

	start := time.Now()
	h.waitForWakeup(context.Background(), 30*time.Millisecond)
	elapsed := time.Since(start)

	assert.True(t, elapsed >= 30*time.Millisecond)
}

func TestHybridBackend_DequeueRejectsMismatchedChannel(t *testing.T) {
	h := &HybridBackend{channel: "orders", conn: newFakeListenerConn(), durable: &DurableBackend{}}

	_, err := h.Dequeue(context.Background(), "other", time.Millisecond)
	assert.Error(t, err)
}

func TestHybridBackend_ShutdownIsIdempotent(t *testing.T) {
	conn := newFakeListenerConn()
	h := &HybridBackend{channel: "orders", conn: conn}

	assert.NoError(t, h.Shutdown(context.Background()))
	assert.True(t, conn.released)
	assert.NoError(t, h.Shutdown(context.Background()))
}

func TestNotifyStatement_BindsChannelAndPayload(t *testing.T) {
	s := notifyStatement{channel: "orders", payload: `{"event_id":"a"}`}

	assert.Equal(t, "SELECT pg_notify($1, $2)", s.Text())
	assert.False(t, s.IsMany())

	params, ok := s.Parameters().([]sqlvalue.Value)
	assert.True(t, ok)
	assert.Equal(t, 2, len(params))
	assert.Equal(t, "orders", params[0].Native())
	assert.Equal(t, `{"event_id":"a"}`, params[1].Native())
}
