package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/eventqueue"
	"github.com/sqlspec/sqlspec/session"
	"github.com/sqlspec/sqlspec/sqlvalue"
)

// notifyStatement is a minimal session.Preparable implementation for the
// single "SELECT pg_notify($1, $2)" call HybridBackend.Publish issues
// inside the same transaction as the durable insert. pg_notify is
// Postgres-specific syntax with no ANSI/dialect-portable rendering, so it
// is built directly here rather than routed through the AST
// Engine/Builder Layer, which is scoped to portable SQL constructs.
type notifyStatement struct {
	channel string
	payload string
}

func (s notifyStatement) Text() string { return "SELECT pg_notify($1, $2)" }
func (s notifyStatement) Parameters() any {
	return []sqlvalue.Value{sqlvalue.StringValue(s.channel), sqlvalue.StringValue(s.payload)}
}
func (s notifyStatement) IsMany() bool { return false }

var _ session.Preparable = notifyStatement{}

// HybridBackend combines the durable queue with a native NOTIFY wakeup:
// Publish inserts the row and issues NOTIFY in one
// transaction; Dequeue waits briefly for the wakeup, then always
// delegates to the durable queue's own Dequeue regardless of whether the
// wakeup fired — correctness never depends on the NOTIFY arriving.
type HybridBackend struct {
	sess    *session.Session
	durable *DurableBackend
	channel string

	mu     sync.Mutex
	conn   listenerConn
	closed bool
}

// NewHybrid builds a HybridBackend. sess is the database-session used for
// the durable queue and the in-transaction NOTIFY; pool supplies the
// dedicated native connection used only for the wakeup LISTEN (a separate
// physical connection from sess's, since the generic Session contract has
// no LISTEN primitive). Both must point at the same Postgres database.
func NewHybrid(ctx context.Context, sess *session.Session, q *eventqueue.Queue, pool *pgxpool.Pool, channel string) (*HybridBackend, error) {
	if !eventqueue.ValidChannel(channel) {
		return nil, sqlspec.NewError(sqlspec.KindEventChannel, sqlspec.ErrEventChannel, "", channel, "channel does not match ^[A-Za-z_][A-Za-z0-9_]*$")
	}

	pooled, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := pooled.Exec(ctx, "LISTEN \""+channel+"\""); err != nil {
		pooled.Release()
		return nil, err
	}

	return &HybridBackend{
		sess:    sess,
		durable: NewDurable(q),
		channel: channel,
		conn:    &pgxConn{conn: pooled},
	}, nil
}

// Publish inserts into the durable queue and issues NOTIFY carrying only
// {"event_id": ...} in a single transaction, so a subscriber never wakes
// up for a row that didn't commit.
func (h *HybridBackend) Publish(ctx context.Context, channel string, payload, metadata map[string]any) (string, error) {
	var eventID string

	err := session.WithTransaction(ctx, h.sess, func(ctx context.Context, s *session.Session) error {
		id, err := h.durable.Queue.Publish(ctx, channel, payload, metadata)
		if err != nil {
			return err
		}
		eventID = id

		data, err := encodeEnvelope(id, nil, nil, time.Time{})
		if err != nil {
			return err
		}

		cursor, err := s.Execute(ctx, notifyStatement{channel: channel, payload: string(data)}, false)
		if err != nil {
			return err
		}

		// pg_notify is a SELECT; its row must be drained before the
		// transaction can issue further statements or commit.
		return cursor.Close()
	}, nil)

	return eventID, err
}

// Dequeue waits up to pollInterval for the native wakeup (ignored on
// timeout or any listener error — it is a hint only), then delegates once
// to the durable queue's own Dequeue with a zero poll window: the wakeup
// (or the timeout) has already consumed the caller's budget.
func (h *HybridBackend) Dequeue(ctx context.Context, channel string, pollInterval time.Duration) (*eventqueue.Message, error) {
	if channel != h.channel {
		return nil, sqlspec.NewError(sqlspec.KindImproperConfiguration, sqlspec.ErrImproperConfiguration, "", channel, "hybrid backend is bound to a different channel")
	}

	h.waitForWakeup(ctx, pollInterval)

	return h.durable.Dequeue(ctx, channel, 0)
}

func (h *HybridBackend) waitForWakeup(ctx context.Context, pollInterval time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, pollInterval)
	defer cancel()

	// Errors (including the expected deadline-exceeded timeout) are
	// deliberately swallowed: the subsequent durable Dequeue call is what
	// determines whether a message actually exists, per the "wakeup hint
	// only" guarantee.
	_, _ = h.conn.WaitForNotification(waitCtx)
}

func (h *HybridBackend) Ack(ctx context.Context, eventID string) error {
	return h.durable.Ack(ctx, eventID)
}

func (h *HybridBackend) Nack(ctx context.Context, eventID string, delay time.Duration) error {
	return h.durable.Nack(ctx, eventID, delay)
}

// Shutdown closes the dedicated subscribing connection. Idempotent.
func (h *HybridBackend) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	h.conn.Release()
	h.closed = true

	return nil
}

var _ Backend = (*HybridBackend)(nil)
