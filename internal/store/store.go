// Package store loads and validates persona definition catalogs.
package store

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync/atomic"

	"github.com/rosterlabs/roster/internal/metrics"
	"github.com/rosterlabs/roster/pkg/models"
)

// Store assembles catalogs from a record source. It owns validation
// (required fields, unique IDs) and the strict/non-strict load policy.
type Store struct {
	source  Source
	strict  bool
	metrics *metrics.Metrics // optional
	version atomic.Uint64
}

// New creates a store over the given source. In strict mode the first
// malformed record aborts the whole load; otherwise malformed records are
// logged and skipped.
func New(source Source, strict bool) *Store {
	return &Store{source: source, strict: strict}
}

// SetMetrics attaches Prometheus metrics.
func (s *Store) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Load reads all records from the source and builds a validated catalog.
// The caller bounds the load with its context deadline; an exceeded
// deadline surfaces as ErrLoadTimeout.
func (s *Store) Load(ctx context.Context) (*models.Catalog, error) {
	records, err := s.source.Records(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLoadTimeout
		}
		return nil, err
	}

	seen := make(map[string]string, len(records)) // id -> origin
	defs := make([]models.PersonaDefinition, 0, len(records))
	skipped := 0

	for i := range records {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, ErrLoadTimeout
			}
			return nil, err
		}

		rec := &records[i]
		if rec.Err == nil {
			rec.Err = validate(rec)
		}
		if rec.Err != nil {
			var malformed *MalformedDefinitionError
			if errors.As(rec.Err, &malformed) && !s.strict {
				log.Printf("[Store] Skipping malformed persona record: %v", rec.Err)
				skipped++
				if s.metrics != nil {
					s.metrics.RecordsSkipped.Inc()
				}
				continue
			}
			return nil, rec.Err
		}

		if first, dup := seen[rec.Def.ID]; dup {
			// Never skippable: two personas answering to one id would
			// make routing ambiguous.
			return nil, &DuplicateIDError{ID: rec.Def.ID, First: first, Second: rec.Origin}
		}
		seen[rec.Def.ID] = rec.Origin
		defs = append(defs, rec.Def)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })

	version := s.version.Add(1)
	catalog := models.NewCatalog(version, s.source.Description(), defs)
	log.Printf("[Store] Loaded catalog v%d from %s: %d personas (%d skipped)",
		version, s.source.Description(), catalog.Len(), skipped)
	return catalog, nil
}

// validate enforces the per-record invariants from the data model.
func validate(rec *Record) error {
	if rec.Def.ID == "" {
		return &MalformedDefinitionError{Origin: rec.Origin, Reason: "missing required field: name"}
	}
	if rec.Def.Description == "" {
		return &MalformedDefinitionError{Origin: rec.Origin, Reason: "missing required field: description"}
	}
	if len(rec.Def.TriggerExamples) == 0 {
		return &MalformedDefinitionError{Origin: rec.Origin, Reason: "at least one trigger example is required"}
	}
	return nil
}
