package models

import (
	"time"
)

// PersonaDefinition is one entry in the persona catalog. Definitions are
// created at load time and never mutated; a reload builds a fresh catalog.
type PersonaDefinition struct {
	// ID is the unique persona name (e.g., "react-typescript-architect").
	ID string `json:"id" yaml:"name"`

	// Description is free text used for matching.
	Description string `json:"description" yaml:"description"`

	// TriggerExamples are sample task phrasings declared by the persona
	// to anchor matching, in declaration order.
	TriggerExamples []string `json:"trigger_examples" yaml:"triggers"`

	// ColorTag is opaque display metadata (e.g., "cyan", "#0047AB").
	ColorTag string `json:"color_tag,omitempty" yaml:"color"`

	// ProfileBody is the full behavioral instruction text. The registry
	// never interprets it; consumers feed it to whatever runtime acts on it.
	ProfileBody string `json:"profile_body" yaml:"-"`

	// SourceFile is where the definition was loaded from, for diagnostics.
	SourceFile string `json:"source_file,omitempty" yaml:"-"`

	LoadedAt time.Time `json:"loaded_at" yaml:"-"`
}

// TaskSignature describes one incoming task for dispatch. It lives for a
// single selection and is discarded afterwards.
type TaskSignature struct {
	// Text is the raw task description.
	Text string `json:"text"`

	// Hints are optional declared technology/domain keywords
	// (e.g., ["react", "typescript"]).
	Hints []string `json:"hints,omitempty"`
}

// ScoreTerm is one token or hint that contributed to a match score.
type ScoreTerm struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
	Source string  `json:"source"` // "description", "trigger", or "hint"
}

// MatchScore is the confidence of one persona against one task, with the
// terms that contributed. Recomputed on every dispatch, never persisted.
type MatchScore struct {
	PersonaID string      `json:"persona_id"`
	Value     float64     `json:"value"` // normalized to [0,1]
	Terms     []ScoreTerm `json:"terms,omitempty"`
}

// DispatchHandle binds the winning persona to the task that selected it.
// It is immutable and owned by the caller for the duration of one task.
type DispatchHandle struct {
	DispatchID string            `json:"dispatch_id"`
	Persona    PersonaDefinition `json:"persona"`
	Task       TaskSignature     `json:"task"`
	Score      MatchScore        `json:"score"`
	At         time.Time         `json:"at"`
}

// ID returns the selected persona's name.
func (h *DispatchHandle) ID() string {
	return h.Persona.ID
}

// ProfileBody returns the selected persona's behavioral instructions.
func (h *DispatchHandle) ProfileBody() string {
	return h.Persona.ProfileBody
}

// Catalog is an immutable point-in-time view of the loaded personas.
// Selection always runs against one catalog snapshot; reload swaps in a
// whole new Catalog rather than mutating an existing one.
type Catalog struct {
	// Version increments on every successful load/reload.
	Version uint64 `json:"version"`

	// Source describes where the catalog was loaded from.
	Source string `json:"source"`

	LoadedAt time.Time `json:"loaded_at"`

	definitions []PersonaDefinition
	byID        map[string]int
}

// NewCatalog builds a catalog from already-validated definitions.
// Definitions must be ordered by ID so iteration order is stable.
func NewCatalog(version uint64, source string, defs []PersonaDefinition) *Catalog {
	c := &Catalog{
		Version:     version,
		Source:      source,
		LoadedAt:    time.Now().UTC(),
		definitions: defs,
		byID:        make(map[string]int, len(defs)),
	}
	for i := range defs {
		c.byID[defs[i].ID] = i
	}
	return c
}

// Len returns the number of personas in the catalog.
func (c *Catalog) Len() int {
	return len(c.definitions)
}

// Definitions returns the catalog entries in stable (ID-sorted) order.
// Callers must not modify the returned slice.
func (c *Catalog) Definitions() []PersonaDefinition {
	return c.definitions
}

// Get looks up a persona by ID.
func (c *Catalog) Get(id string) (PersonaDefinition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return PersonaDefinition{}, false
	}
	return c.definitions[i], true
}

// IDs returns all persona IDs in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.definitions))
	for i := range c.definitions {
		ids = append(ids, c.definitions[i].ID)
	}
	return ids
}
