// Package eventqueue implements the durable, table-backed Event Queue:
// upsert/claim/ack/nack against a row-per-message table, with
// lease-bounded claims and lazy expired-lease reclamation. It is the
// storage underneath the "durable" and "hybrid" Event Backends.
//
// Every SQL statement it issues goes through the Statement Pipeline
// (pipeline.Pipeline) and Builder Layer (builder.Update/Select/Insert);
// transaction boundaries go through the database-session contract
// (session.Session).
package eventqueue

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/sqlspec/sqlspec"
)

// channelPattern enforces its channel grammar.
var channelPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidChannel reports whether channel satisfies its grammar.
func ValidChannel(channel string) bool {
	return channelPattern.MatchString(channel)
}

// Status mirrors the durable queue row states:
// pending → claimed → {acked | pending (nack) | pending (lease expiry)}.
type Status string

const (
	StatusPending Status = "pending"
	StatusClaimed Status = "claimed"
	StatusAcked   Status = "acked"
)

// Message is the durable-queue row surfaced to a dequeue caller.
type Message struct {
	EventID        string
	Channel        string
	Payload        map[string]any
	Metadata       map[string]any
	Attempts       int
	AvailableAt    time.Time
	LeaseExpiresAt *time.Time
	CreatedAt      time.Time
}

func marshalJSON(v map[string]any) (string, error) {
	if v == nil {
		return "{}", nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func unmarshalJSON(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}

	var v map[string]any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}

	return v, nil
}

// tablePattern guards against a misconfigured queue table name being
// interpolated unescaped into SQL text.
var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

func validTableName(name string) bool {
	return tablePattern.MatchString(name)
}

var errInvalidTableName = sqlspec.NewError(sqlspec.KindImproperConfiguration, sqlspec.ErrImproperConfiguration, "", "", "queue.table is not a safe SQL identifier")
