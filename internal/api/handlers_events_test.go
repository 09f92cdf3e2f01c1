package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rosterlabs/roster/internal/eventbus"
)

func TestGetEventsHistory(t *testing.T) {
	srv, _ := newTestServer(t, true)
	bus := eventbus.NewEventBus()
	defer bus.Close()
	srv.SetEventBus(bus)
	handler := srv.SetupRoutes()

	bus.Publish(eventbus.EventTypePersonaSelected, "test", map[string]interface{}{"persona_id": "react-typescript-architect"})
	bus.Publish(eventbus.EventTypeDispatchNoMatch, "test", nil)
	time.Sleep(50 * time.Millisecond)

	w := doJSON(t, handler, http.MethodGet, "/api/v1/events?limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Events []*eventbus.Event `json:"events"`
		Count  int               `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 {
		t.Fatalf("expected 2 events, got %d", resp.Count)
	}

	// Type filter narrows the history
	w = doJSON(t, handler, http.MethodGet, "/api/v1/events?type=dispatch.no_match", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 {
		t.Errorf("expected 1 filtered event, got %d", resp.Count)
	}
}

func TestGetEventsWithoutBus(t *testing.T) {
	_, handler := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without event bus, got %d", rec.Code)
	}
}
