package eventbus

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/sqlspec/sqlspec/eventqueue"
)

func TestDurableBackend_ShutdownIsNoOp(t *testing.T) {
	d := NewDurable(&eventqueue.Queue{})
	assert.NoError(t, d.Shutdown(context.Background()))
}

func TestDurableBackend_ImplementsBackend(t *testing.T) {
	var _ Backend = NewDurable(&eventqueue.Queue{})
}
