package eventqueue

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/pipeline"
	"github.com/sqlspec/sqlspec/session"
)

// row is the in-memory shape of one durable-queue table row, backing the
// fakeQueueDriver below.
type row struct {
	eventID        string
	channel        string
	payloadJSON    string
	metadataJSON   string
	status         string
	availableAt    time.Time
	leaseExpiresAt *time.Time
	attempts       int64
	createdAt      time.Time
}

// fakeQueueDriver is a minimal database/sql/driver implementation that
// understands only the handful of statement shapes Queue issues against
// sqlspec_event_queue; it exists to exercise Queue's logic without a real
// database.
type fakeQueueDriver struct {
	mu   sync.Mutex
	rows map[string]*row
}

func newFakeQueueDriver() *fakeQueueDriver {
	return &fakeQueueDriver{rows: map[string]*row{}}
}

func (d *fakeQueueDriver) Open(_ string) (driver.Conn, error) { return &fakeConn{d: d}, nil }

type fakeConn struct{ d *fakeQueueDriver }

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) { return &fakeStmt{d: c.d, query: query}, nil }
func (c *fakeConn) Close() error                              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error)                 { return nil, fmt.Errorf("transactions not used by eventqueue") }

func (c *fakeConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	return runQuery(c.d, query, args)
}

func (c *fakeConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	return runExec(c.d, query, args)
}

var (
	_ driver.QueryerContext = (*fakeConn)(nil)
	_ driver.ExecerContext  = (*fakeConn)(nil)
)

type fakeStmt struct {
	d     *fakeQueueDriver
	query string
}

func (s *fakeStmt) Close() error  { return nil }
func (s *fakeStmt) NumInput() int { return -1 }
func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	return runExec(s.d, s.query, toNamed(args))
}
func (s *fakeStmt) Query(args []driver.Value) (driver.Rows, error) {
	return runQuery(s.d, s.query, toNamed(args))
}

func toNamed(args []driver.Value) []driver.NamedValue {
	out := make([]driver.NamedValue, len(args))
	for i, a := range args {
		out[i] = driver.NamedValue{Ordinal: i + 1, Value: a}
	}
	return out
}

func argString(v driver.NamedValue) string {
	s, _ := v.Value.(string)
	return s
}

// runExec dispatches the three write statements Queue issues: INSERT
// (publish), and the various UPDATE/DELETE forms (claim, ack, nack,
// reclaim). It dispatches on substrings of the rendered SQL text rather
// than a real parser, which is adequate since this stub only ever sees
// the SQL this package itself renders.
func runExec(d *fakeQueueDriver, query string, args []driver.NamedValue) (driver.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	upper := strings.ToUpper(query)

	switch {
	case strings.HasPrefix(upper, "INSERT INTO"):
		r := &row{
			eventID:      argString(args[0]),
			channel:      argString(args[1]),
			payloadJSON:  argString(args[2]),
			metadataJSON: argString(args[3]),
			status:       argString(args[4]),
			availableAt:  args[5].Value.(time.Time),
			attempts:     0,
			createdAt:    args[7].Value.(time.Time),
		}
		d.rows[r.eventID] = r
		return driver.RowsAffected(1), nil

	case strings.HasPrefix(upper, "UPDATE") && strings.Contains(upper, "AVAILABLE_AT = "):
		// nack: SET status=?, lease_expires_at=NULL, attempts=attempts+1, available_at=? WHERE event_id=?
		// (the NULL lease assignment is a bound nil placeholder at args[1];
		// the attempts bump is a raw expression and binds nothing)
		status := argString(args[0])
		availableAt := args[2].Value.(time.Time)
		eventID := argString(args[3])

		r, ok := d.rows[eventID]
		if !ok {
			return driver.RowsAffected(0), nil
		}
		r.status = status
		r.leaseExpiresAt = nil
		r.attempts++
		r.availableAt = availableAt
		return driver.RowsAffected(1), nil

	case strings.HasPrefix(upper, "UPDATE") && strings.Contains(upper, "STATUS = ") && strings.Contains(upper, "LEASE_EXPIRES_AT = ") && strings.Contains(upper, "ATTEMPTS = ATTEMPTS + 1"):
		// claim: SET status=?, lease_expires_at=?, attempts=attempts+1 WHERE event_id=? AND status=?
		status := argString(args[0])
		lease := args[1].Value.(time.Time)
		eventID := argString(args[2])
		wantStatus := argString(args[3])

		r, ok := d.rows[eventID]
		if !ok || r.status != wantStatus {
			return driver.RowsAffected(0), nil
		}
		r.status = status
		r.leaseExpiresAt = &lease
		r.attempts++
		return driver.RowsAffected(1), nil

	case strings.HasPrefix(upper, "UPDATE") && strings.Contains(upper, "LEASE_EXPIRES_AT <"):
		// reclaim expired: SET status=?, lease_expires_at=NULL WHERE status=? AND lease_expires_at < ?
		// (the NULL assignment is still a bound placeholder, so it occupies
		// args[1] even though its value is nil)
		status := argString(args[0])
		wantStatus := argString(args[2])
		threshold := args[3].Value.(time.Time)

		var n int64
		for _, r := range d.rows {
			if r.status == wantStatus && r.leaseExpiresAt != nil && r.leaseExpiresAt.Before(threshold) {
				r.status = status
				r.leaseExpiresAt = nil
				n++
			}
		}
		return driver.RowsAffected(n), nil

	case strings.HasPrefix(upper, "DELETE FROM"):
		eventID := argString(args[0])
		if _, ok := d.rows[eventID]; ok {
			delete(d.rows, eventID)
			return driver.RowsAffected(1), nil
		}
		return driver.RowsAffected(0), nil

	default:
		return nil, fmt.Errorf("fakeQueueDriver: unrecognized exec statement: %s", query)
	}
}

func runQuery(d *fakeQueueDriver, query string, args []driver.NamedValue) (driver.Rows, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	upper := strings.ToUpper(query)

	switch {
	case strings.HasPrefix(upper, "SELECT EVENT_ID FROM"):
		// candidate select: WHERE channel=? AND status=? AND available_at <= ?
		channel := argString(args[0])
		status := argString(args[1])
		threshold := args[2].Value.(time.Time)

		var ids []string
		for _, r := range d.rows {
			if r.channel == channel && r.status == status && !r.availableAt.After(threshold) {
				ids = append(ids, r.eventID)
			}
		}
		return &idRows{ids: ids}, nil

	case strings.HasPrefix(upper, "SELECT EVENT_ID, CHANNEL"):
		eventID := argString(args[0])
		r, ok := d.rows[eventID]
		if !ok {
			return &fullRows{}, nil
		}
		return &fullRows{rows: []*row{r}}, nil

	default:
		return nil, fmt.Errorf("fakeQueueDriver: unrecognized query statement: %s", query)
	}
}

type idRows struct {
	ids []string
	i   int
}

func (r *idRows) Columns() []string { return []string{"event_id"} }
func (r *idRows) Close() error      { return nil }
func (r *idRows) Next(dest []driver.Value) error {
	if r.i >= len(r.ids) {
		return io.EOF
	}
	dest[0] = r.ids[r.i]
	r.i++
	return nil
}

type fullRows struct {
	rows []*row
	i    int
}

func (r *fullRows) Columns() []string {
	return []string{"event_id", "channel", "payload_json", "metadata_json", "attempts", "available_at", "lease_expires_at", "created_at"}
}
func (r *fullRows) Close() error { return nil }
func (r *fullRows) Next(dest []driver.Value) error {
	if r.i >= len(r.rows) {
		return io.EOF
	}
	row := r.rows[r.i]
	r.i++
	dest[0] = row.eventID
	dest[1] = row.channel
	dest[2] = row.payloadJSON
	dest[3] = row.metadataJSON
	dest[4] = row.attempts
	dest[5] = row.availableAt
	if row.leaseExpiresAt != nil {
		dest[6] = *row.leaseExpiresAt
	} else {
		dest[6] = nil
	}
	dest[7] = row.createdAt
	return nil
}

var queueSeq uint64

func newTestQueue(t *testing.T) (*Queue, *fakeQueueDriver) {
	t.Helper()

	fd := newFakeQueueDriver()
	name := fmt.Sprintf("sqlspec_eventqueue_test_%d", atomic.AddUint64(&queueSeq, 1))
	sql.Register(name, fd)

	db, err := sql.Open(name, "")
	assert.NoError(t, err)

	sess := session.New(db, sqlspec.DialectPostgres)
	pl := pipeline.New()
	cfg := sqlspec.QueueConfig{Table: "sqlspec_event_queue", LeaseSeconds: 1}

	return New(sess, pl, cfg), fd
}

func TestPublishThenDequeueThenAck(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	id, err := q.Publish(ctx, "orders", map[string]any{"k": float64(1)}, nil)
	assert.NoError(t, err)
	assert.True(t, id != "")

	msg, err := q.Dequeue(ctx, "orders", 100*time.Millisecond)
	assert.NoError(t, err)
	assert.True(t, msg != nil)
	assert.Equal(t, id, msg.EventID)
	assert.Equal(t, int(1), msg.Attempts)

	assert.NoError(t, q.Ack(ctx, id))

	msg2, err := q.Dequeue(ctx, "orders", 50*time.Millisecond)
	assert.NoError(t, err)
	assert.True(t, msg2 == nil)
}

func TestDequeueEmptyChannelTimesOut(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	msg, err := q.Dequeue(ctx, "empty_channel", 60*time.Millisecond)
	assert.NoError(t, err)
	assert.True(t, msg == nil)
}

func TestLeaseReclaimRedeliversAfterExpiry(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	id, err := q.Publish(ctx, "orders", map[string]any{"k": float64(1)}, nil)
	assert.NoError(t, err)

	msg, err := q.Dequeue(ctx, "orders", 100*time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, id, msg.EventID)
	assert.Equal(t, 1, msg.Attempts)

	// lease_seconds=1: wait past expiry without acking.
	time.Sleep(1200 * time.Millisecond)

	msg2, err := q.Dequeue(ctx, "orders", 200*time.Millisecond)
	assert.NoError(t, err)
	assert.True(t, msg2 != nil)
	assert.Equal(t, id, msg2.EventID)
	assert.Equal(t, 2, msg2.Attempts)
}

func TestNackReturnsToPendingWithDelay(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	id, err := q.Publish(ctx, "orders", map[string]any{}, nil)
	assert.NoError(t, err)

	msg, err := q.Dequeue(ctx, "orders", 100*time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, id, msg.EventID)

	assert.NoError(t, q.Nack(ctx, id, 50*time.Millisecond))

	// immediately after nack, available_at is in the future: not eligible yet.
	msg2, err := q.Dequeue(ctx, "orders", 10*time.Millisecond)
	assert.NoError(t, err)
	assert.True(t, msg2 == nil)

	// after the delay elapses, it is eligible again.
	time.Sleep(80 * time.Millisecond)
	msg3, err := q.Dequeue(ctx, "orders", 100*time.Millisecond)
	assert.NoError(t, err)
	assert.True(t, msg3 != nil)
	assert.Equal(t, id, msg3.EventID)
	// first claim, the nack itself, and the re-claim each count an attempt.
	assert.Equal(t, 3, msg3.Attempts)
}

func TestInvalidChannelRejected(t *testing.T) {
	q, _ := newTestQueue(t)
	_, err := q.Publish(context.Background(), "9bad", map[string]any{}, nil)
	assert.Error(t, err)
}

func TestValidChannel(t *testing.T) {
	assert.True(t, ValidChannel("orders"))
	assert.True(t, ValidChannel("_private"))
	assert.False(t, ValidChannel("9bad"))
	assert.False(t, ValidChannel("has space"))
}
