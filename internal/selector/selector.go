// Package selector resolves a task signature to at most one persona.
package selector

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rosterlabs/roster/internal/matcher"
	"github.com/rosterlabs/roster/pkg/models"
)

// ErrNoMatch is returned when no persona clears the confidence threshold.
// It is an expected outcome, not a failure: callers decide the fallback
// (a generic default persona, or surfacing the ambiguity to a human).
var ErrNoMatch = errors.New("no persona cleared the confidence threshold")

// DefaultMinConfidence is used when the caller does not configure one.
const DefaultMinConfidence = 0.15

// Selector picks the best-matching persona from a catalog snapshot.
// Selection is a pure read: it never mutates the catalog and is safe to
// run concurrently from any number of goroutines.
type Selector struct {
	matcher       *matcher.Matcher
	minConfidence float64
}

// New creates a selector. A non-positive minConfidence falls back to
// DefaultMinConfidence.
func New(m *matcher.Matcher, minConfidence float64) *Selector {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	return &Selector{matcher: m, minConfidence: minConfidence}
}

// MinConfidence returns the configured selection threshold.
func (s *Selector) MinConfidence() float64 {
	return s.minConfidence
}

// Select scores every persona in the catalog against the task and returns
// a handle for the winner, or ErrNoMatch if nothing clears the threshold.
//
// Tie-break is explicit and stable: higher score wins; equal scores resolve
// to the lexicographically smaller persona ID. Catalog definitions iterate
// in ID order, so keeping the first strictly-greater score implements that.
func (s *Selector) Select(catalog *models.Catalog, task *models.TaskSignature) (*models.DispatchHandle, error) {
	defs := catalog.Definitions()

	var best *models.MatchScore
	var bestIdx int
	for i := range defs {
		score := s.matcher.Score(&defs[i], task)
		if best == nil || score.Value > best.Value {
			scoreCopy := score
			best = &scoreCopy
			bestIdx = i
		}
	}

	// The winner must strictly exceed the threshold; a score exactly at
	// the floor is still NoMatch.
	if best == nil || best.Value <= s.minConfidence {
		return nil, ErrNoMatch
	}

	return &models.DispatchHandle{
		DispatchID: uuid.NewString(),
		Persona:    defs[bestIdx],
		Task:       *task,
		Score:      *best,
		At:         time.Now().UTC(),
	}, nil
}

// ScoreAll returns the score of every persona in the catalog against the
// task, in catalog (ID) order. Used for audit and debugging endpoints.
func (s *Selector) ScoreAll(catalog *models.Catalog, task *models.TaskSignature) []models.MatchScore {
	defs := catalog.Definitions()
	scores := make([]models.MatchScore, 0, len(defs))
	for i := range defs {
		scores = append(scores, s.matcher.Score(&defs[i], task))
	}
	return scores
}
