package eventqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/ast"
	"github.com/sqlspec/sqlspec/builder"
	"github.com/sqlspec/sqlspec/pipeline"
	"github.com/sqlspec/sqlspec/session"
)

// Queue is the durable table-backed Event Queue. One Queue
// owns one (session, table) pair; the Statement Pipeline and Builder
// Layer are reused, not reimplemented, for every statement it issues.
type Queue struct {
	sess *session.Session
	pl   *pipeline.Pipeline
	cfg  sqlspec.QueueConfig

	// clock is overridable for tests that exercise lease expiry without
	// sleeping real wall-clock seconds.
	clock func() time.Time
}

// New builds a Queue against an already-acquired Session. cfg supplies
// table name and lease/retention tuning; an empty Table or a non-positive
// LeaseSeconds falls back to the defaults applied below, and every other
// field is used as given.
func New(sess *session.Session, pl *pipeline.Pipeline, cfg sqlspec.QueueConfig) *Queue {
	if cfg.Table == "" {
		cfg.Table = "sqlspec_event_queue"
	}

	if cfg.LeaseSeconds <= 0 {
		cfg.LeaseSeconds = 30
	}

	return &Queue{sess: sess, pl: pl, cfg: cfg, clock: time.Now}
}

func (q *Queue) now() time.Time { return q.clock().UTC() }

// Publish inserts a pending row. channel must match
// ^[A-Za-z_][A-Za-z0-9_]*$.
func (q *Queue) Publish(ctx context.Context, channel string, payload, metadata map[string]any) (string, error) {
	if !ValidChannel(channel) {
		return "", sqlspec.NewError(sqlspec.KindEventChannel, sqlspec.ErrEventChannel, "", channel, "channel does not match ^[A-Za-z_][A-Za-z0-9_]*$")
	}

	if !validTableName(q.cfg.Table) {
		return "", errInvalidTableName
	}

	payloadJSON, err := marshalJSON(payload)
	if err != nil {
		return "", fmt.Errorf("%w: encoding payload: %v", sqlspec.ErrEventChannel, err)
	}

	metadataJSON, err := marshalJSON(metadata)
	if err != nil {
		return "", fmt.Errorf("%w: encoding metadata: %v", sqlspec.ErrEventChannel, err)
	}

	eventID := strings.ReplaceAll(uuid.New().String(), "-", "")
	now := q.now()

	ins := builder.InsertInto(q.dialect(), q.cfg.Table).
		Columns("event_id", "channel", "payload_json", "metadata_json", "status", "available_at", "attempts", "created_at").
		Values(eventID, channel, payloadJSON, metadataJSON, string(StatusPending), now, 0, now)

	stmt, err := q.pl.Prepare(ins, q.dialect())
	if err != nil {
		return "", err
	}

	if _, err := q.sess.Execute(ctx, stmt, false); err != nil {
		return "", err
	}

	return eventID, nil
}

// Dequeue atomically selects and claims one eligible row: status=pending,
// channel matches, available_at <= now, ordered (available_at,
// created_at). It blocks up to pollInterval,
// polling at a fixed short interval, returning (nil, nil) on timeout with
// no message found — never an error for "nothing to deliver".
func (q *Queue) Dequeue(ctx context.Context, channel string, pollInterval time.Duration) (*Message, error) {
	if !validTableName(q.cfg.Table) {
		return nil, errInvalidTableName
	}

	deadline := q.now().Add(pollInterval)
	step := pollInterval / 10
	if step <= 0 || step > 50*time.Millisecond {
		step = 50 * time.Millisecond
	}

	for {
		if err := q.ReclaimExpired(ctx); err != nil {
			return nil, err
		}

		msg, err := q.claimOne(ctx, channel)
		if err != nil {
			return nil, err
		}

		if msg != nil {
			return msg, nil
		}

		if q.now().After(deadline) {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(step):
		}
	}
}

// claimOne runs the compare-and-swap claim loop on (status,
// lease_expires_at): it selects a bounded window of eligible
// candidates, then attempts an UPDATE ... WHERE event_id = ? AND
// status = 'pending' against each in order, stopping at the first one
// whose RowsAffected is 1 (every other concurrent claimant lost that same
// race and moves to the next candidate). When cfg.SelectForUpdate and
// cfg.SkipLocked are both set and the dialect's Capabilities advertise
// SupportsSkipLocked, the candidate SELECT itself uses FOR UPDATE SKIP
// LOCKED so healthy contention resolves without any wasted UPDATE
// attempts; with SelectForUpdate set otherwise, it uses plain FOR UPDATE.
func (q *Queue) claimOne(ctx context.Context, channel string) (*Message, error) {
	const candidateWindow = 10

	sel := builder.Select(q.dialect(), "event_id").
		From(q.cfg.Table).
		Where("channel", channel).
		Where("status", string(StatusPending)).
		Where("available_at", "<=", q.now()).
		OrderBy("available_at", false).
		OrderBy("created_at", false).
		Limit(candidateWindow)

	if q.cfg.SelectForUpdate && sqlspec.CapabilitiesFor(q.dialect()).SupportsSkipLocked && q.cfg.SkipLocked {
		sel = sel.ForUpdateSkipLocked()
	} else if q.cfg.SelectForUpdate {
		sel = sel.ForUpdate()
	}

	stmt, err := q.pl.Prepare(sel, q.dialect())
	if err != nil {
		return nil, err
	}

	cursor, err := q.sess.Execute(ctx, stmt, false)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var candidates []string
	for cursor.Next() {
		var id string
		if err := cursor.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %v", sqlspec.ErrDependency, err)
		}
		candidates = append(candidates, id)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", sqlspec.ErrDependency, err)
	}

	for _, id := range candidates {
		claimed, err := q.tryClaim(ctx, id)
		if err != nil {
			return nil, err
		}
		if claimed {
			return q.fetchByID(ctx, id)
		}
	}

	return nil, nil
}

// tryClaim performs the single CAS UPDATE; it reports whether this caller
// won the claim.
func (q *Queue) tryClaim(ctx context.Context, eventID string) (bool, error) {
	now := q.now()
	leaseUntil := now.Add(time.Duration(q.cfg.LeaseSeconds) * time.Second)

	upd := builder.Update(q.dialect(), q.cfg.Table).
		Set("status", string(StatusClaimed)).
		Set("lease_expires_at", leaseUntil).
		Set("attempts", ast.NewRawExpr("attempts + 1")).
		Where("event_id", eventID).
		Where("status", string(StatusPending))

	stmt, err := q.pl.Prepare(upd, q.dialect())
	if err != nil {
		return false, err
	}

	cursor, err := q.sess.Execute(ctx, stmt, false)
	if err != nil {
		return false, err
	}
	defer cursor.Close()

	affected, err := cursor.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", sqlspec.ErrDependency, err)
	}

	return affected == 1, nil
}

func (q *Queue) fetchByID(ctx context.Context, eventID string) (*Message, error) {
	sel := builder.Select(q.dialect(),
		"event_id", "channel", "payload_json", "metadata_json",
		"attempts", "available_at", "lease_expires_at", "created_at").
		From(q.cfg.Table).
		Where("event_id", eventID)

	stmt, err := q.pl.Prepare(sel, q.dialect())
	if err != nil {
		return nil, err
	}

	cursor, err := q.sess.Execute(ctx, stmt, false)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if !cursor.Next() {
		return nil, fmt.Errorf("%w: claimed row %s vanished before it could be read back", sqlspec.ErrDependency, eventID)
	}

	var (
		id, channel, payloadJSON, metadataJSON string
		attempts                               int
		availableAt, createdAt                 time.Time
		leaseExpiresAt                         sql.NullTime
	)

	if err := cursor.Scan(&id, &channel, &payloadJSON, &metadataJSON, &attempts, &availableAt, &leaseExpiresAt, &createdAt); err != nil {
		return nil, fmt.Errorf("%w: %v", sqlspec.ErrDependency, err)
	}

	payload, err := unmarshalJSON(payloadJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding payload: %v", sqlspec.ErrEventChannel, err)
	}

	metadata, err := unmarshalJSON(metadataJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding metadata: %v", sqlspec.ErrEventChannel, err)
	}

	msg := &Message{
		EventID:     id,
		Channel:     channel,
		Payload:     payload,
		Metadata:    metadata,
		Attempts:    attempts,
		AvailableAt: availableAt,
		CreatedAt:   createdAt,
	}

	if leaseExpiresAt.Valid {
		t := leaseExpiresAt.Time
		msg.LeaseExpiresAt = &t
	}

	return msg, nil
}

// Ack deletes the row (or archives it to acked, per RetentionSeconds).
// It only matches a row that is still claimed under an unexpired lease,
// so an ack whose lease has already expired (whether or not the row has
// been reclaimed to pending yet) is a no-op: the DELETE/UPDATE affects
// zero rows. The row is matched by event_id rather than by claim, so once
// another consumer has claimed it again, an ack from the earlier consumer
// settles that newer claim.
func (q *Queue) Ack(ctx context.Context, eventID string) error {
	if !validTableName(q.cfg.Table) {
		return errInvalidTableName
	}

	now := q.now()

	if q.cfg.RetentionSeconds > 0 {
		upd := builder.Update(q.dialect(), q.cfg.Table).
			Set("status", string(StatusAcked)).
			Set("lease_expires_at", nil).
			Where("event_id", eventID).
			Where("status", string(StatusClaimed)).
			Where("lease_expires_at", ">", now)

		stmt, err := q.pl.Prepare(upd, q.dialect())
		if err != nil {
			return err
		}

		_, err = q.sess.Execute(ctx, stmt, false)
		return err
	}

	del := builder.DeleteFrom(q.dialect(), q.cfg.Table).
		Where("event_id", eventID).
		Where("status", string(StatusClaimed)).
		Where("lease_expires_at", ">", now)

	stmt, err := q.pl.Prepare(del, q.dialect())
	if err != nil {
		return err
	}

	_, err = q.sess.Execute(ctx, stmt, false)
	return err
}

// Nack returns the row to pending with attempts += 1 and
// available_at = now + delay.
func (q *Queue) Nack(ctx context.Context, eventID string, delay time.Duration) error {
	if !validTableName(q.cfg.Table) {
		return errInvalidTableName
	}

	availableAt := q.now().Add(delay)

	upd := builder.Update(q.dialect(), q.cfg.Table).
		Set("status", string(StatusPending)).
		Set("lease_expires_at", nil).
		Set("attempts", ast.NewRawExpr("attempts + 1")).
		Set("available_at", availableAt).
		Where("event_id", eventID)

	stmt, err := q.pl.Prepare(upd, q.dialect())
	if err != nil {
		return err
	}

	_, err = q.sess.Execute(ctx, stmt, false)
	return err
}

// ReclaimExpired resets every claimed row whose lease has passed back to
// pending. Dequeue calls this lazily at its own head rather than running
// a separate sweeper.
func (q *Queue) ReclaimExpired(ctx context.Context) error {
	if !validTableName(q.cfg.Table) {
		return errInvalidTableName
	}

	upd := builder.Update(q.dialect(), q.cfg.Table).
		Set("status", string(StatusPending)).
		Set("lease_expires_at", nil).
		Where("status", string(StatusClaimed)).
		Where("lease_expires_at", "<", q.now())

	stmt, err := q.pl.Prepare(upd, q.dialect())
	if err != nil {
		return err
	}

	_, err = q.sess.Execute(ctx, stmt, false)
	return err
}

func (q *Queue) dialect() sqlspec.Dialect { return q.sess.Dialect() }

// ErrLeaseExpired documents the "no lost acks" guarantee: Ack never
// returns it (an expired-lease ack is a silent no-op), but it is
// exported so a caller that tracks attempts drift itself has a named
// sentinel to compare against.
var ErrLeaseExpired = errors.New("eventqueue: lease already expired or claim already settled")
