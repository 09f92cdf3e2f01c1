package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rosterlabs/roster/internal/eventbus"
)

// handleEventStream handles the SSE endpoint for real-time event updates
// GET /api/v1/events/stream
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if s.bus == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Event bus not available")
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Optional type filter from query params
	eventType := r.URL.Query().Get("type")

	subscriberID := fmt.Sprintf("sse-%d", time.Now().UnixNano())
	filter := func(event *eventbus.Event) bool {
		if eventType != "" && string(event.Type) != eventType {
			return false
		}
		return true
	}

	subscriber := s.bus.Subscribe(subscriberID, filter)
	defer s.bus.Unsubscribe(subscriberID)

	// Send initial connection event
	fmt.Fprintf(w, "event: connected\n")
	fmt.Fprintf(w, "data: {\"message\": \"Connected to event stream\"}\n\n")
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	// Stream events to client
	ctx := r.Context()
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			// Client disconnected
			return
		case event, ok := <-subscriber.Channel:
			if !ok {
				// Channel closed
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				continue
			}

			fmt.Fprintf(w, "event: %s\n", event.Type)
			fmt.Fprintf(w, "data: %s\n\n", data)

			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

// handleGetEvents handles GET /api/v1/events?type=xxx&limit=100 for
// recent event history.
func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if s.bus == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Event bus not available")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	events := s.bus.Recent(limit)
	if eventType := r.URL.Query().Get("type"); eventType != "" {
		filtered := events[:0]
		for _, event := range events {
			if string(event.Type) == eventType {
				filtered = append(filtered, event)
			}
		}
		events = filtered
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}
