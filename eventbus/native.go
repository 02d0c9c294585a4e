package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/eventqueue"
)

// notification is the narrow shape native.go needs out of a Postgres
// NOTIFY wakeup, kept separate from pgconn.Notification so listenerConn
// (below) can be satisfied by a fake in tests without a real connection.
type notification struct {
	Channel string
	Payload string
}

// listenerConn is the dedicated-subscribing-connection contract
// NativeBackend and the hybrid wakeup half both depend on. pgxConn (in
// this file) is the only production implementation; tests substitute a
// fake so the LISTEN/NOTIFY wait logic is exercised without a database.
type listenerConn interface {
	WaitForNotification(ctx context.Context) (*notification, error)
	Release()
}

// pgxConn adapts a pgxpool.Conn that has already issued LISTEN to the
// listenerConn contract.
type pgxConn struct {
	conn *pgxpool.Conn
}

func (c *pgxConn) WaitForNotification(ctx context.Context) (*notification, error) {
	n, err := c.conn.Conn().WaitForNotification(ctx)
	if err != nil {
		return nil, err
	}

	return &notification{Channel: n.Channel, Payload: n.Payload}, nil
}

func (c *pgxConn) Release() { c.conn.Release() }

var _ listenerConn = (*pgxConn)(nil)

// NativeBackend is the "native" Event Backend: ephemeral LISTEN/NOTIFY
// pub/sub with no persistence. Ack/Nack are no-ops —
// delivery is at-most-once and best-effort.
type NativeBackend struct {
	pool            *pgxpool.Pool
	channel         string
	maxPayloadBytes int

	mu     sync.Mutex // serializes concurrent Dequeue on this instance
	conn   listenerConn
	closed bool
}

// NewNative acquires a dedicated connection from pool, issues LISTEN
// channel once, and returns a ready NativeBackend. The connection is held
// for the backend's lifetime; Shutdown releases it.
func NewNative(ctx context.Context, pool *pgxpool.Pool, channel string, maxPayloadBytes int) (*NativeBackend, error) {
	if !eventqueue.ValidChannel(channel) {
		return nil, sqlspec.NewError(sqlspec.KindEventChannel, sqlspec.ErrEventChannel, "", channel, "channel does not match ^[A-Za-z_][A-Za-z0-9_]*$")
	}

	if maxPayloadBytes <= 0 {
		maxPayloadBytes = 8000
	}

	pooled, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquiring native subscribing connection: %v", sqlspec.ErrDependency, err)
	}

	if _, err := pooled.Exec(ctx, "LISTEN \""+channel+"\""); err != nil {
		pooled.Release()
		return nil, fmt.Errorf("%w: LISTEN %s: %v", sqlspec.ErrDependency, channel, err)
	}

	return &NativeBackend{
		pool:            pool,
		channel:         channel,
		maxPayloadBytes: maxPayloadBytes,
		conn:            &pgxConn{conn: pooled},
	}, nil
}

// Publish issues pg_notify(channel, envelope_json) through the shared
// pool (not the dedicated subscribing connection — any pool member can
// NOTIFY). PayloadTooLarge fires before the round-trip if the encoded
// envelope exceeds maxPayloadBytes.
func (n *NativeBackend) Publish(ctx context.Context, channel string, payload, metadata map[string]any) (string, error) {
	if channel != n.channel {
		return "", fmt.Errorf("%w: native backend is bound to channel %q, got %q", sqlspec.ErrImproperConfiguration, n.channel, channel)
	}

	eventID := newEventID()

	data, err := encodeEnvelope(eventID, payload, metadata, time.Now())
	if err != nil {
		return "", err
	}

	if len(data) > n.maxPayloadBytes {
		return "", errPayloadTooLarge(len(data), n.maxPayloadBytes)
	}

	if _, err := n.pool.Exec(ctx, "SELECT pg_notify($1, $2)", channel, string(data)); err != nil {
		return "", fmt.Errorf("%w: NOTIFY %s: %v", sqlspec.ErrDependency, channel, err)
	}

	return eventID, nil
}

// Dequeue waits up to pollInterval on the dedicated subscribing
// connection for one notification, decoding it into a Message with
// Attempts=0 and no lease (native delivery carries no redelivery
// bookkeeping). Times out to (nil, nil), never an error, matching every
// other backend's Dequeue contract.
func (n *NativeBackend) Dequeue(ctx context.Context, channel string, pollInterval time.Duration) (*eventqueue.Message, error) {
	if channel != n.channel {
		return nil, fmt.Errorf("%w: native backend is bound to channel %q, got %q", sqlspec.ErrImproperConfiguration, n.channel, channel)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil, fmt.Errorf("%w: native backend already shut down", sqlspec.ErrEventChannel)
	}

	waitCtx, cancel := context.WithTimeout(ctx, pollInterval)
	defer cancel()

	note, err := n.conn.WaitForNotification(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: waiting for notification: %v", sqlspec.ErrDependency, err)
	}

	env, err := decodeEnvelope([]byte(note.Payload))
	if err != nil {
		return nil, err
	}

	return &eventqueue.Message{
		EventID:   env.EventID,
		Channel:   note.Channel,
		Payload:   env.Payload,
		Metadata:  env.Metadata,
		Attempts:  0,
		CreatedAt: publishedAtOf(env),
	}, nil
}

// Ack is a no-op: native delivery is fire-and-forget.
func (n *NativeBackend) Ack(ctx context.Context, eventID string) error { return nil }

// Nack is a no-op for the same reason.
func (n *NativeBackend) Nack(ctx context.Context, eventID string, delay time.Duration) error {
	return nil
}

// Shutdown releases the dedicated subscribing connection. Idempotent.
func (n *NativeBackend) Shutdown(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}

	n.conn.Release()
	n.closed = true

	return nil
}

var _ Backend = (*NativeBackend)(nil)
