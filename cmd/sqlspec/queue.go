package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sqlspec/sqlspec"
	"github.com/sqlspec/sqlspec/eventqueue"
	"github.com/sqlspec/sqlspec/pipeline"
	"github.com/sqlspec/sqlspec/session"
)

// QueueCmd groups the durable Event Queue's publish/dequeue/ack/nack
// operations behind one parent command.
type QueueCmd struct {
	Publish QueuePublishCmd `cmd:"" help:"Publish a message to a channel"`
	Dequeue QueueDequeueCmd `cmd:"" help:"Dequeue one message from a channel"`
	Ack     QueueAckCmd     `cmd:"" help:"Ack a claimed message"`
	Nack    QueueNackCmd    `cmd:"" help:"Return a claimed message to pending"`
}

// queueFlags is embedded by every queue subcommand; sql.Open's driver
// name must match one of the three blank-imported drivers above.
type queueFlags struct {
	DSN    string `help:"Database connection string" required:""`
	Driver string `help:"Database driver: pgx, mysql, sqlite3" default:"pgx"`
	Table  string `help:"Queue table name" default:"sqlspec_event_queue"`
}

func dialectForDriver(driver string) sqlspec.Dialect {
	switch driver {
	case "mysql":
		return sqlspec.DialectMySQL
	case "sqlite3":
		return sqlspec.DialectSQLite
	default:
		return sqlspec.DialectPostgres
	}
}

func (f queueFlags) openQueue() (*eventqueue.Queue, *sql.DB, error) {
	db, err := sql.Open(f.Driver, f.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: opening %s: %v", sqlspec.ErrDependency, f.Driver, err)
	}

	sess := session.New(db, dialectForDriver(f.Driver))
	pl := pipeline.New()

	q := eventqueue.New(sess, pl, sqlspec.QueueConfig{Table: f.Table})

	return q, db, nil
}

// QueuePublishCmd publishes one message.
type QueuePublishCmd struct {
	queueFlags
	Channel  string `help:"Channel to publish to" required:""`
	Payload  string `help:"JSON object payload" default:"{}"`
	Metadata string `help:"JSON object metadata" default:""`
}

func (c *QueuePublishCmd) Run(ctx *Context) error {
	var payload map[string]any
	if err := json.Unmarshal([]byte(c.Payload), &payload); err != nil {
		return fmt.Errorf("--payload must be a JSON object: %w", err)
	}

	var metadata map[string]any
	if c.Metadata != "" {
		if err := json.Unmarshal([]byte(c.Metadata), &metadata); err != nil {
			return fmt.Errorf("--metadata must be a JSON object: %w", err)
		}
	}

	q, db, err := c.openQueue()
	if err != nil {
		return err
	}
	defer db.Close()

	eventID, err := q.Publish(context.Background(), c.Channel, payload, metadata)
	if err != nil {
		return err
	}

	if !ctx.Quiet {
		color.Green("published %s to %s", eventID, c.Channel)
	}
	fmt.Println(eventID)

	return nil
}

// QueueDequeueCmd claims and prints one message, blocking up to
// --poll-interval.
type QueueDequeueCmd struct {
	queueFlags
	Channel      string        `help:"Channel to dequeue from" required:""`
	PollInterval time.Duration `help:"Maximum time to wait for a message" default:"5s"`
}

func (c *QueueDequeueCmd) Run(ctx *Context) error {
	q, db, err := c.openQueue()
	if err != nil {
		return err
	}
	defer db.Close()

	msg, err := q.Dequeue(context.Background(), c.Channel, c.PollInterval)
	if err != nil {
		return err
	}

	if msg == nil {
		if !ctx.Quiet {
			color.Yellow("no message available on %s within %s", c.Channel, c.PollInterval)
		}
		return nil
	}

	out, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return err
	}

	if !ctx.Quiet {
		color.Blue("claimed %s (attempt %d)", msg.EventID, msg.Attempts)
	}
	fmt.Println(string(out))

	return nil
}

// QueueAckCmd acks a previously claimed message by event id.
type QueueAckCmd struct {
	queueFlags
	EventID string `arg:"" help:"event_id to ack"`
}

func (c *QueueAckCmd) Run(ctx *Context) error {
	q, db, err := c.openQueue()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := q.Ack(context.Background(), c.EventID); err != nil {
		return err
	}

	if !ctx.Quiet {
		color.Green("acked %s", c.EventID)
	}

	return nil
}

// QueueNackCmd returns a claimed message to pending, optionally delayed.
type QueueNackCmd struct {
	queueFlags
	EventID string        `arg:"" help:"event_id to nack"`
	Delay   time.Duration `help:"Delay before the message becomes eligible again" default:"0s"`
}

func (c *QueueNackCmd) Run(ctx *Context) error {
	q, db, err := c.openQueue()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := q.Nack(context.Background(), c.EventID, c.Delay); err != nil {
		return err
	}

	if !ctx.Quiet {
		color.Yellow("nacked %s, eligible again in %s", c.EventID, c.Delay)
	}

	return nil
}
