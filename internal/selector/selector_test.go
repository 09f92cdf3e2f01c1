package selector

import (
	"errors"
	"testing"

	"github.com/rosterlabs/roster/internal/matcher"
	"github.com/rosterlabs/roster/pkg/models"
)

func testCatalog() *models.Catalog {
	return models.NewCatalog(1, "testdata", []models.PersonaDefinition{
		{
			ID:          "python-engineer",
			Description: "Backend Python services and task queues",
			TriggerExamples: []string{
				"FastAPI async endpoint",
				"Celery background job",
			},
		},
		{
			ID:          "react-typescript-architect",
			Description: "Frontend architecture with React and TypeScript",
			TriggerExamples: []string{
				"Refactor this React component",
				"TypeScript API types",
			},
		},
	})
}

func TestSelectPicksReactPersona(t *testing.T) {
	s := New(matcher.New(0), 0)
	task := &models.TaskSignature{Text: "I need help refactoring a React hook into smaller components"}

	handle, err := s.Select(testCatalog(), task)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if handle.ID() != "react-typescript-architect" {
		t.Errorf("expected react-typescript-architect, got %s", handle.ID())
	}
	if handle.Score.Value <= s.MinConfidence() {
		t.Errorf("winning score %v does not exceed threshold %v", handle.Score.Value, s.MinConfidence())
	}
	if handle.DispatchID == "" {
		t.Error("expected a dispatch id")
	}
}

func TestSelectNoMatch(t *testing.T) {
	s := New(matcher.New(0), 0)
	task := &models.TaskSignature{Text: "Unrelated cooking recipe question"}

	_, err := s.Select(testCatalog(), task)
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestSelectThresholdIsExclusive(t *testing.T) {
	m := matcher.New(0)
	catalog := testCatalog()
	task := &models.TaskSignature{Text: "I need help refactoring a React hook into smaller components"}

	// Find the winning score, then pin the threshold exactly on it.
	var winning float64
	for _, score := range New(m, DefaultMinConfidence).ScoreAll(catalog, task) {
		if score.Value > winning {
			winning = score.Value
		}
	}
	if winning <= 0 {
		t.Fatalf("expected a positive winning score, got %v", winning)
	}

	// A score exactly at the threshold is NoMatch.
	atThreshold := New(m, winning)
	if _, err := atThreshold.Select(catalog, task); !errors.Is(err, ErrNoMatch) {
		t.Errorf("score == threshold should be NoMatch, got %v", err)
	}

	// Nudging the threshold just below selects.
	below := New(m, winning-1e-9)
	handle, err := below.Select(catalog, task)
	if err != nil {
		t.Fatalf("score above threshold should select: %v", err)
	}
	if handle.Score.Value != winning {
		t.Errorf("expected winning score %v, got %v", winning, handle.Score.Value)
	}
}

func TestSelectHandleAlwaysInCatalog(t *testing.T) {
	s := New(matcher.New(0), 0)
	catalog := testCatalog()

	tasks := []string{
		"Refactor this React component",
		"FastAPI async endpoint for user accounts",
		"TypeScript API types for the billing service",
	}
	for _, text := range tasks {
		handle, err := s.Select(catalog, &models.TaskSignature{Text: text})
		if errors.Is(err, ErrNoMatch) {
			continue
		}
		if err != nil {
			t.Fatalf("Select(%q) failed: %v", text, err)
		}
		if _, ok := catalog.Get(handle.ID()); !ok {
			t.Errorf("handle references %q which is not in the catalog", handle.ID())
		}
	}
}

func TestSelectDeterministic(t *testing.T) {
	s := New(matcher.New(0.25), 0)
	catalog := testCatalog()
	task := &models.TaskSignature{
		Text:  "Refactor the React component tree",
		Hints: []string{"react"},
	}

	first, err := s.Select(catalog, task)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := s.Select(catalog, task)
		if err != nil {
			t.Fatalf("Select failed on run %d: %v", i, err)
		}
		if again.ID() != first.ID() {
			t.Fatalf("selected persona changed: %s vs %s", again.ID(), first.ID())
		}
		if again.Score.Value != first.Score.Value {
			t.Fatalf("winning score changed: %v vs %v", again.Score.Value, first.Score.Value)
		}
	}
}

func TestSelectTieBreakLexicographic(t *testing.T) {
	// Two personas with identical triggers score identically; the
	// lexicographically smaller ID must win.
	catalog := models.NewCatalog(1, "testdata", []models.PersonaDefinition{
		{
			ID:              "aaa-generalist",
			Description:     "General engineering work",
			TriggerExamples: []string{"Fix the deployment pipeline"},
		},
		{
			ID:              "zzz-generalist",
			Description:     "General engineering work",
			TriggerExamples: []string{"Fix the deployment pipeline"},
		},
	})

	s := New(matcher.New(0), 0)
	handle, err := s.Select(catalog, &models.TaskSignature{Text: "Fix the deployment pipeline"})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if handle.ID() != "aaa-generalist" {
		t.Errorf("tie should resolve to aaa-generalist, got %s", handle.ID())
	}
}

func TestScoreAllOrder(t *testing.T) {
	s := New(matcher.New(0), 0)
	catalog := testCatalog()

	scores := s.ScoreAll(catalog, &models.TaskSignature{Text: "Refactor this React component"})
	if len(scores) != catalog.Len() {
		t.Fatalf("expected %d scores, got %d", catalog.Len(), len(scores))
	}
	if scores[0].PersonaID != "python-engineer" || scores[1].PersonaID != "react-typescript-architect" {
		t.Errorf("scores not in catalog order: %s, %s", scores[0].PersonaID, scores[1].PersonaID)
	}
}
