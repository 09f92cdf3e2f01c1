package models

import (
	"testing"
	"time"
)

func testDefs() []PersonaDefinition {
	return []PersonaDefinition{
		{ID: "python-engineer", Description: "Python services", TriggerExamples: []string{"FastAPI async endpoint"}},
		{ID: "react-typescript-architect", Description: "React and TypeScript", TriggerExamples: []string{"Refactor this React component"}},
	}
}

func TestCatalogLookup(t *testing.T) {
	c := NewCatalog(1, "testdata", testDefs())

	if c.Len() != 2 {
		t.Fatalf("expected 2 definitions, got %d", c.Len())
	}

	def, ok := c.Get("python-engineer")
	if !ok {
		t.Fatal("expected python-engineer to be present")
	}
	if def.Description != "Python services" {
		t.Errorf("unexpected description: %q", def.Description)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("expected lookup miss for unknown id")
	}
}

func TestCatalogIDsStableOrder(t *testing.T) {
	c := NewCatalog(3, "testdata", testDefs())

	ids := c.IDs()
	want := []string{"python-engineer", "react-typescript-architect"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestDispatchHandleAccessors(t *testing.T) {
	h := &DispatchHandle{
		DispatchID: "dispatch-1",
		Persona: PersonaDefinition{
			ID:          "python-engineer",
			ProfileBody: "You are a senior Python engineer.",
		},
		Score: MatchScore{PersonaID: "python-engineer", Value: 0.8},
		At:    time.Now(),
	}

	if h.ID() != "python-engineer" {
		t.Errorf("ID() = %q, want python-engineer", h.ID())
	}
	if h.ProfileBody() != "You are a senior Python engineer." {
		t.Errorf("unexpected profile body: %q", h.ProfileBody())
	}
}
