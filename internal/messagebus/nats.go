// Package messagebus bridges registry events onto NATS JetStream so other
// services (audit, analytics, a fallback queue) can consume dispatch
// decisions without polling the HTTP API.
package messagebus

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rosterlabs/roster/internal/eventbus"
)

const bridgeSubscriberID = "nats-bridge"

// Config holds NATS configuration
type Config struct {
	URL        string        // NATS server URL (e.g., "nats://nats:4222")
	StreamName string        // JetStream stream name (default: "ROSTER")
	Timeout    time.Duration // Connection timeout
}

// Bridge forwards event bus events to NATS JetStream subjects of the form
// roster.events.<type>.
type Bridge struct {
	conn       *nats.Conn
	js         nats.JetStreamContext
	streamName string
	bus        *eventbus.EventBus
	sub        *eventbus.Subscriber
	done       chan struct{}
}

// NewBridge connects to NATS, ensures the stream, and starts forwarding.
func NewBridge(cfg Config, bus *eventbus.EventBus) (*Bridge, error) {
	if cfg.URL == "" {
		cfg.URL = "nats://localhost:4222"
	}
	if cfg.StreamName == "" {
		cfg.StreamName = "ROSTER"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	b := &Bridge{
		conn:       nc,
		js:         js,
		streamName: cfg.StreamName,
		bus:        bus,
		done:       make(chan struct{}),
	}

	if err := b.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}

	b.sub = bus.Subscribe(bridgeSubscriberID, nil)
	go b.forward()

	log.Printf("Connected to NATS at %s with JetStream stream %s", cfg.URL, cfg.StreamName)
	return b, nil
}

// ensureStream creates or updates the JetStream stream. LimitsPolicy (not
// WorkQueue) so multiple consumers can subscribe to the same subjects.
func (b *Bridge) ensureStream() error {
	streamConfig := &nats.StreamConfig{
		Name:      b.streamName,
		Subjects:  []string{"roster.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		MaxBytes:  256 * 1024 * 1024,
		Storage:   nats.FileStorage,
		Replicas:  1,
		Discard:   nats.DiscardOld,
	}

	if _, err := b.js.StreamInfo(b.streamName); err != nil {
		if _, err := b.js.AddStream(streamConfig); err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		log.Printf("Created JetStream stream: %s", b.streamName)
		return nil
	}

	if _, err := b.js.UpdateStream(streamConfig); err != nil {
		return fmt.Errorf("failed to update stream: %w", err)
	}
	return nil
}

func (b *Bridge) forward() {
	for {
		select {
		case <-b.done:
			return
		case event, ok := <-b.sub.Channel:
			if !ok {
				return
			}
			if err := b.publishEvent(event); err != nil {
				log.Printf("[MessageBus] Failed to publish %s: %v", event.Type, err)
			}
		}
	}
}

func (b *Bridge) publishEvent(event *eventbus.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := fmt.Sprintf("roster.events.%s", event.Type)
	if _, err := b.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close stops forwarding and drains the NATS connection.
func (b *Bridge) Close() {
	close(b.done)
	b.bus.Unsubscribe(bridgeSubscriberID)
	if err := b.conn.Drain(); err != nil {
		log.Printf("[MessageBus] Drain failed: %v", err)
	}
}
