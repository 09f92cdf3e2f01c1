// Package eventbus provides in-process pub/sub for registry and dispatch
// events. Consumers include the SSE API endpoint and the NATS bridge.
package eventbus

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventTypeCatalogLoaded    EventType = "catalog.loaded"
	EventTypeCatalogReloaded  EventType = "catalog.reloaded"
	EventTypePersonaSelected  EventType = "persona.selected"
	EventTypeDispatchNoMatch  EventType = "dispatch.no_match"
	EventTypeRegistryClosed   EventType = "registry.closed"
	EventTypeHotReloadTrigger EventType = "hotreload.triggered"
)

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"` // Component that generated the event
	Data      map[string]interface{} `json:"data"`   // Event payload
}

// Subscriber represents an event subscriber
type Subscriber struct {
	ID      string
	Channel chan *Event
	Filter  func(*Event) bool // Optional filter function
}

const defaultBufferSize = 1000

// EventBus provides non-blocking pub/sub event delivery with a bounded
// ring of recent history. Slow subscribers drop events rather than stall
// publishers.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	buffer      chan *Event
	ctx         context.Context
	cancel      context.CancelFunc

	// Ring buffer for recent event history (ephemeral, lost on restart)
	recentEvents []*Event
	recentIdx    int
	recentCount  int
}

// NewEventBus creates a new event bus and starts its delivery goroutine.
func NewEventBus() *EventBus {
	ctx, cancel := context.WithCancel(context.Background())

	eb := &EventBus{
		subscribers:  make(map[string]*Subscriber),
		buffer:       make(chan *Event, defaultBufferSize),
		ctx:          ctx,
		cancel:       cancel,
		recentEvents: make([]*Event, defaultBufferSize),
	}

	go eb.processEvents()
	return eb
}

// Publish enqueues an event for delivery. Drops the event if the bus
// buffer is full so publishers never block on slow consumers.
func (eb *EventBus) Publish(eventType EventType, source string, data map[string]interface{}) {
	event := &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    source,
		Data:      data,
	}

	select {
	case eb.buffer <- event:
	default:
		log.Printf("[EventBus] Buffer full, dropping event %s", eventType)
	}
}

// Subscribe registers a subscriber with an optional filter.
func (eb *EventBus) Subscribe(id string, filter func(*Event) bool) *Subscriber {
	sub := &Subscriber{
		ID:      id,
		Channel: make(chan *Event, 100),
		Filter:  filter,
	}

	eb.mu.Lock()
	eb.subscribers[id] = sub
	eb.mu.Unlock()

	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (eb *EventBus) Unsubscribe(id string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if sub, ok := eb.subscribers[id]; ok {
		delete(eb.subscribers, id)
		close(sub.Channel)
	}
}

// Recent returns up to limit most recent events, newest first.
func (eb *EventBus) Recent(limit int) []*Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if limit <= 0 || limit > eb.recentCount {
		limit = eb.recentCount
	}

	events := make([]*Event, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (eb.recentIdx - 1 - i + len(eb.recentEvents)) % len(eb.recentEvents)
		events = append(events, eb.recentEvents[idx])
	}
	return events
}

// Close stops event delivery and disconnects all subscribers.
func (eb *EventBus) Close() {
	eb.cancel()

	eb.mu.Lock()
	defer eb.mu.Unlock()
	for id, sub := range eb.subscribers {
		delete(eb.subscribers, id)
		close(sub.Channel)
	}
}

func (eb *EventBus) processEvents() {
	for {
		select {
		case <-eb.ctx.Done():
			return
		case event := <-eb.buffer:
			eb.deliver(event)
		}
	}
}

// deliver fans the event out under the lock. Unsubscribe and Close also
// close subscriber channels under the lock, so a send can never race a
// close. Sends are non-blocking, so holding mu here stays cheap.
func (eb *EventBus) deliver(event *Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.recentEvents[eb.recentIdx] = event
	eb.recentIdx = (eb.recentIdx + 1) % len(eb.recentEvents)
	if eb.recentCount < len(eb.recentEvents) {
		eb.recentCount++
	}

	for _, sub := range eb.subscribers {
		if sub.Filter != nil && !sub.Filter(event) {
			continue
		}
		select {
		case sub.Channel <- event:
		default:
			// Slow subscriber, drop for this one rather than block
		}
	}
}
