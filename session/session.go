// Package session implements the database-session contract consumed (not
// implemented) by the rest of this module: the Statement Pipeline, the
// Event Queue, and the Event Backends all execute against a Session
// rather than a concrete driver, so the core never imports a wire
// protocol directly. Connection/pool lifecycle is explicitly out of
// scope; a caller's pool hands over an already-dialed *sql.DB to New.
//
// WithTransaction follows the standard begin-defer-rollback-or-commit
// shape over database/sql, recovering a panic in the handler as a
// rollback before re-panicking.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/sqlvalue"
)

// ErrTransactionAlreadyBegun is returned by BeginTx on a Session that is
// already inside a transaction.
var ErrTransactionAlreadyBegun = errors.New("session: transaction already begun")

// ErrNoActiveTransaction is returned by Commit/Rollback when no BeginTx
// call is outstanding.
var ErrNoActiveTransaction = errors.New("session: no active transaction")

// ErrCommitOnSpecific is a handler-returned signal: when a handler passed
// to WithTransaction returns an error that wraps it, WithTransaction
// commits instead of rolling back and still returns that error (joined
// with any commit error).
var ErrCommitOnSpecific = errors.New("session: commit on specific transaction")

// ResultCursor is the narrow slice of *sql.Rows the core ever touches:
// column descriptions, row iteration, and rows-affected.
type ResultCursor interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Err() error
	Close() error
	RowsAffected() (int64, error)
}

// rowsCursor adapts *sql.Rows plus the sql.Result of the statement that
// produced them (for non-SELECT statements database/sql returns no rows,
// so RowsAffected is carried alongside).
type rowsCursor struct {
	rows    *sql.Rows
	result  sql.Result
	scanErr error
}

func (c *rowsCursor) Next() bool {
	if c.rows == nil {
		return false
	}
	return c.rows.Next()
}

func (c *rowsCursor) Scan(dest ...any) error {
	if c.rows == nil {
		return sql.ErrNoRows
	}
	err := c.rows.Scan(dest...)
	if err != nil {
		c.scanErr = err
	}
	return err
}

func (c *rowsCursor) Columns() ([]string, error) {
	if c.rows == nil {
		return nil, nil
	}
	return c.rows.Columns()
}

func (c *rowsCursor) Err() error {
	if c.scanErr != nil {
		return c.scanErr
	}
	if c.rows == nil {
		return nil
	}
	return c.rows.Err()
}

func (c *rowsCursor) Close() error {
	if c.rows == nil {
		return nil
	}
	return c.rows.Close()
}

func (c *rowsCursor) RowsAffected() (int64, error) {
	if c.result == nil {
		return 0, nil
	}
	return c.result.RowsAffected()
}

// Preparable is the structural contract Session.Execute expects a
// *pipeline.Statement to satisfy, without this package importing
// pipeline (which would create a dependency cycle, since pipeline needs
// no Session type — only Execute's caller does).
type Preparable interface {
	Text() string
	Parameters() any
	IsMany() bool
}

// querier is the common surface of *sql.DB and *sql.Tx that Execute
// needs; it lets Session.Execute run identically whether or not a
// transaction is open.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Session wraps a *sql.DB (or, transiently, a *sql.Tx while a transaction
// is open) plus the Capabilities of the dialect it talks to, passed
// alongside the session rather than resolved through subclassing.
type Session struct {
	db           *sql.DB
	tx           *sql.Tx
	capabilities sqlspec.Capabilities
	dialect      sqlspec.Dialect
}

// New wraps an already-acquired *sql.DB. Acquiring the *sql.DB itself
// (dialing, pooling, health-checking) is the external collaborator's
// concern, not this package's.
func New(db *sql.DB, dialect sqlspec.Dialect) *Session {
	return &Session{db: db, dialect: dialect, capabilities: sqlspec.CapabilitiesFor(dialect)}
}

// Dialect reports the dialect this Session renders statements for.
func (s *Session) Dialect() sqlspec.Dialect { return s.dialect }

// Capabilities reports the registered Capabilities for this Session's
// dialect.
func (s *Session) Capabilities() sqlspec.Capabilities { return s.capabilities }

func (s *Session) querier() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Execute runs a prepared Statement and returns a ResultCursor exposing
// rows (if any) and rows-affected. When many is true or the Statement
// reports IsMany(), Execute issues one ExecContext per parameter set in
// the Statement's batch container; passing many=false does not force
// single-set execution of a batch-shaped Statement.
func (s *Session) Execute(ctx context.Context, stmt Preparable, many bool) (ResultCursor, error) {
	if many || stmt.IsMany() {
		return s.executeMany(ctx, stmt)
	}

	args, err := asArgs(stmt.Parameters())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sqlspec.ErrDependency, err)
	}

	if looksLikeSelect(stmt.Text()) {
		rows, err := s.querier().QueryContext(ctx, stmt.Text(), args...)
		if err != nil {
			return nil, wrapDependencyErr(stmt.Text(), err)
		}
		return &rowsCursor{rows: rows}, nil
	}

	result, err := s.querier().ExecContext(ctx, stmt.Text(), args...)
	if err != nil {
		return nil, wrapDependencyErr(stmt.Text(), err)
	}
	return &rowsCursor{result: result}, nil
}

// executeMany fans batch parameter sets out into one ExecContext per set;
// database/sql has no native executemany, so this mirrors what every
// database/sql-backed driver (pgx, go-sql-driver, go-sqlite3) does under
// the hood for batched writes.
func (s *Session) executeMany(ctx context.Context, stmt Preparable) (ResultCursor, error) {
	sets, err := asArgSets(stmt.Parameters())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sqlspec.ErrDependency, err)
	}

	var total int64
	for _, args := range sets {
		result, err := s.querier().ExecContext(ctx, stmt.Text(), args...)
		if err != nil {
			return nil, wrapDependencyErr(stmt.Text(), err)
		}
		if n, err := result.RowsAffected(); err == nil {
			total += n
		}
	}
	return &batchCursor{affected: total}, nil
}

type batchCursor struct{ affected int64 }

func (c *batchCursor) Next() bool                  { return false }
func (c *batchCursor) Scan(dest ...any) error       { return sql.ErrNoRows }
func (c *batchCursor) Columns() ([]string, error)   { return nil, nil }
func (c *batchCursor) Err() error                   { return nil }
func (c *batchCursor) Close() error                 { return nil }
func (c *batchCursor) RowsAffected() (int64, error) { return c.affected, nil }

// BeginTx opens a transaction on this Session. It fails ErrTransactionAlreadyBegun
// if one is already outstanding.
func (s *Session) BeginTx(ctx context.Context, opts *sql.TxOptions) error {
	if s.tx != nil {
		return ErrTransactionAlreadyBegun
	}
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return wrapDependencyErr("BEGIN", err)
	}
	s.tx = tx
	return nil
}

// Commit commits the outstanding transaction.
func (s *Session) Commit() error {
	if s.tx == nil {
		return ErrNoActiveTransaction
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return wrapDependencyErr("COMMIT", err)
	}
	return nil
}

// Rollback rolls back the outstanding transaction. Calling Rollback after
// Commit or after a prior Rollback is a no-op, matching sql.Tx semantics.
func (s *Session) Rollback() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return wrapDependencyErr("ROLLBACK", err)
	}
	return nil
}

// Close releases the underlying *sql.DB. Pool lifecycle ownership still
// belongs to the caller; Close exists so Session satisfies a
// resource-scoped-release contract when the caller hands it full
// ownership.
func (s *Session) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// HandlerFunc is executed inside a transaction opened by WithTransaction. It
// receives the same Session so it keeps using Execute/Capabilities during
// the transaction.
type HandlerFunc func(ctx context.Context, s *Session) error

// WithTransaction runs h inside a BEGIN/COMMIT/ROLLBACK boundary: it always
// attempts a Rollback in a deferred cleanup (a no-op once Commit has
// already fired), and joins a rollback error onto h's error instead of
// masking it.
func WithTransaction(ctx context.Context, s *Session, h HandlerFunc, opts *sql.TxOptions) (err error) {
	if err = s.BeginTx(ctx, opts); err != nil {
		return err
	}

	defer func() {
		if rollbackErr := s.Rollback(); rollbackErr != nil {
			err = errors.Join(err, rollbackErr)
		}
	}()

	if err = h(ctx, s); err != nil {
		if !errors.Is(err, ErrCommitOnSpecific) {
			return err
		}
	}

	return errors.Join(err, s.Commit())
}

func wrapDependencyErr(text string, err error) error {
	return sqlspec.NewError(sqlspec.KindDependency, sqlspec.ErrDependency, "", "", fmt.Sprintf("executing %q: %v", redactText(text), err))
}

// redactText keeps the error message safe to log: statement
// text is fine to surface, parameter values never are, and Execute's args
// are kept out of this message entirely.
func redactText(text string) string {
	const max = 200
	if len(text) <= max {
		return text
	}
	return text[:max] + "...<truncated>"
}

func looksLikeSelect(text string) bool {
	trimmed := skipLeadingSpaceAndComments(text)
	return hasPrefixFold(trimmed, "select") || hasPrefixFold(trimmed, "with") || hasPrefixFold(trimmed, "values")
}

func skipLeadingSpaceAndComments(text string) string {
	i := 0
	for i < len(text) {
		switch {
		case text[i] == ' ' || text[i] == '\t' || text[i] == '\n' || text[i] == '\r':
			i++
		case i+1 < len(text) && text[i] == '-' && text[i+1] == '-':
			for i < len(text) && text[i] != '\n' {
				i++
			}
		case i+1 < len(text) && text[i] == '/' && text[i+1] == '*':
			i += 2
			for i+1 < len(text) && !(text[i] == '*' && text[i+1] == '/') {
				i++
			}
			i += 2
		default:
			return text[i:]
		}
	}
	return text[i:]
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		a, b := s[i], prefix[i]
		if 'A' <= a && a <= 'Z' {
			a += 'a' - 'A'
		}
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}

// asArgs converts a Statement's Parameters() into a database/sql args
// list, matching the two single-set shapes pipeline.Statement.Parameters
// returns. Named containers are passed through as
// sql.Named pairs; a driver that only accepts one style will reject the
// other at the wire layer, which is exactly the ParameterStyleMismatch the
// Statement Pipeline already guarded against upstream.
func asArgs(params any) ([]any, error) {
	switch p := params.(type) {
	case []sqlvalue.Value:
		args := make([]any, len(p))
		for i, v := range p {
			args[i] = v.Native()
		}
		return args, nil
	case map[string]sqlvalue.Value:
		args := make([]any, 0, len(p))
		for name, v := range p {
			args = append(args, sql.Named(name, v.Native()))
		}
		return args, nil
	default:
		return nil, fmt.Errorf("session: unrecognized parameter container %T", params)
	}
}

// asArgSets converts the batch-mode Parameters() shapes (is_many = true)
// into one args slice per parameter set.
func asArgSets(params any) ([][]any, error) {
	switch p := params.(type) {
	case []map[string]sqlvalue.Value:
		sets := make([][]any, len(p))
		for i, m := range p {
			args := make([]any, 0, len(m))
			for name, v := range m {
				args = append(args, sql.Named(name, v.Native()))
			}
			sets[i] = args
		}
		return sets, nil
	case [][]sqlvalue.Value:
		sets := make([][]any, len(p))
		for i, list := range p {
			args := make([]any, len(list))
			for j, v := range list {
				args[j] = v.Native()
			}
			sets[i] = args
		}
		return sets, nil
	default:
		return nil, fmt.Errorf("session: unrecognized batch parameter shape %T", params)
	}
}
