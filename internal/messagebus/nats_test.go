package messagebus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rosterlabs/roster/internal/eventbus"
)

func TestNewBridgeUnreachableServer(t *testing.T) {
	bus := eventbus.NewEventBus()
	defer bus.Close()

	// Port 1 is never a NATS server; connect must fail, not hang.
	_, err := NewBridge(Config{
		URL:     "nats://127.0.0.1:1",
		Timeout: 500 * time.Millisecond,
	}, bus)
	assert.Error(t, err)
}
