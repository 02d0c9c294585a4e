package eventbus

import (
	"context"
	"time"
)

// Subscribe is the long-running consumer loop: it calls Dequeue,
// invokes handler on whatever it returns, then Ack on success or Nack on
// failure, until ctx is cancelled. A Dequeue timeout (nil, nil) is not an
// error; Subscribe simply polls again. Cancellation is cooperative:
// Subscribe checks ctx between poll cycles and returns ctx.Err() once it
// observes cancellation, never leaking the backend's own resources (the
// caller remains responsible for calling Shutdown once Subscribe
// returns).
func Subscribe(ctx context.Context, b Backend, channel string, pollInterval time.Duration, handler Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := b.Dequeue(ctx, channel, pollInterval)
		if err != nil {
			return err
		}

		if msg == nil {
			continue
		}

		decision := handler(ctx, msg)
		if decision.Ack {
			if err := b.Ack(ctx, msg.EventID); err != nil {
				return err
			}
			continue
		}

		if err := b.Nack(ctx, msg.EventID, decision.Delay); err != nil {
			return err
		}
	}
}
