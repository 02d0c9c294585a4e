package eventbus

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/eventqueue"
	"github.com/sqlspec/sqlspec/pipeline"
	"github.com/sqlspec/sqlspec/session"
)

const queueSchema = `
CREATE TABLE sqlspec_event_queue (
	event_id         TEXT PRIMARY KEY,
	channel          TEXT NOT NULL,
	payload_json     TEXT NOT NULL,
	metadata_json    TEXT NOT NULL,
	status           TEXT NOT NULL,
	available_at     TIMESTAMPTZ NOT NULL,
	lease_expires_at TIMESTAMPTZ,
	attempts         INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL
)`

// startPostgres launches a Postgres container and hands back both a
// database/sql handle (for the Session/queue side) and a pgxpool (for the
// LISTEN/NOTIFY side), pointed at the same database.
func startPostgres(t *testing.T) (*sql.DB, *pgxpool.Pool) {
	t.Helper()

	ctx := t.Context()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		// t.Context() is already canceled once cleanups run.
		require.NoError(t, postgresContainer.Terminate(context.Background()))
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(ctx, queueSchema)
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return db, pool
}

func TestNativeBackendIntegration_PublishIsDeliveredToSubscriber(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := t.Context()
	_, pool := startPostgres(t)

	backend, err := NewNative(ctx, pool, "orders", 8000)
	require.NoError(t, err)

	defer backend.Shutdown(ctx)

	type result struct {
		msg *eventqueue.Message
		err error
	}

	done := make(chan result, 1)

	go func() {
		msg, err := backend.Dequeue(ctx, "orders", 5*time.Second)
		done <- result{msg: msg, err: err}
	}()

	// Give the subscriber a moment to block on the notification wait.
	time.Sleep(200 * time.Millisecond)

	id, err := backend.Publish(ctx, "orders", map[string]any{"k": float64(1)}, nil)
	require.NoError(t, err)

	got := <-done
	require.NoError(t, got.err)
	require.NotNil(t, got.msg)
	require.Equal(t, id, got.msg.EventID)
	require.Equal(t, map[string]any{"k": float64(1)}, got.msg.Payload)
	require.Equal(t, 0, got.msg.Attempts)
}

func TestHybridBackendIntegration_WakeupAndPollingFallback(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := t.Context()
	db, pool := startPostgres(t)

	sess := session.New(db, sqlspec.DialectPostgres)
	q := eventqueue.New(sess, pipeline.New(), sqlspec.QueueConfig{Table: "sqlspec_event_queue", LeaseSeconds: 30})

	backend, err := NewHybrid(ctx, sess, q, pool, "orders")
	require.NoError(t, err)

	defer backend.Shutdown(ctx)

	// Wakeup path: a subscriber blocked on a long poll window returns the
	// message well before the window closes because NOTIFY wakes it.
	type result struct {
		msg     *eventqueue.Message
		err     error
		elapsed time.Duration
	}

	done := make(chan result, 1)

	go func() {
		start := time.Now()
		msg, err := backend.Dequeue(ctx, "orders", 5*time.Second)
		done <- result{msg: msg, err: err, elapsed: time.Since(start)}
	}()

	time.Sleep(200 * time.Millisecond)

	id, err := backend.Publish(ctx, "orders", map[string]any{"n": float64(1)}, nil)
	require.NoError(t, err)

	got := <-done
	require.NoError(t, got.err)
	require.NotNil(t, got.msg)
	require.Equal(t, id, got.msg.EventID)
	require.True(t, got.elapsed < 3*time.Second, "expected NOTIFY wakeup, not a full poll window, took %s", got.elapsed)
	require.NoError(t, backend.Ack(ctx, id))

	// Fallback path: publish through the durable queue alone (no NOTIFY);
	// the hybrid subscriber still finds the row with its durable check once
	// the wakeup wait times out, since the wakeup is only ever a latency
	// hint.
	id2, err := q.Publish(ctx, "orders", map[string]any{"n": float64(2)}, nil)
	require.NoError(t, err)

	msg2, err := backend.Dequeue(ctx, "orders", 2*time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg2)
	require.Equal(t, id2, msg2.EventID)
	require.NoError(t, backend.Ack(ctx, id2))
}
