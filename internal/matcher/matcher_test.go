package matcher

import (
	"testing"

	"github.com/rosterlabs/roster/pkg/models"
)

func reactPersona() *models.PersonaDefinition {
	return &models.PersonaDefinition{
		ID:          "react-typescript-architect",
		Description: "Frontend architecture with React and TypeScript",
		TriggerExamples: []string{
			"Refactor this React component",
			"TypeScript API types",
		},
	}
}

func pythonPersona() *models.PersonaDefinition {
	return &models.PersonaDefinition{
		ID:          "python-engineer",
		Description: "Backend Python services and task queues",
		TriggerExamples: []string{
			"FastAPI async endpoint",
			"Celery background job",
		},
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Refactor this React component", []string{"component", "react", "refactor"}},
		{"I need help refactoring a React hook into smaller components",
			[]string{"component", "help", "hook", "need", "react", "refactor", "smaller"}},
		{"", nil},
		{"the a an", nil},
		{"FastAPI async endpoint", []string{"async", "endpoint", "fastapi"}},
	}

	for _, tc := range tests {
		got := Tokenize(tc.input)
		if len(got) != len(tc.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tc.input, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("Tokenize(%q)[%d] = %q, want %q", tc.input, i, got[i], tc.want[i])
			}
		}
	}
}

func TestStem(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"refactoring", "refactor"},
		{"components", "component"},
		{"cooking", "cook"},
		{"string", "string"}, // too short for ing-stripping
		{"class", "class"},   // double-s is never stripped
		{"queries", "query"},
		{"react", "react"},
	}

	for _, tc := range tests {
		if got := stem(tc.input); got != tc.want {
			t.Errorf("stem(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestScoreRelevantTask(t *testing.T) {
	m := New(0)
	task := &models.TaskSignature{Text: "I need help refactoring a React hook into smaller components"}

	got := m.Score(reactPersona(), task)
	if got.Value <= 0.15 {
		t.Errorf("expected react persona to clear the default threshold, got %v", got.Value)
	}
	if got.PersonaID != "react-typescript-architect" {
		t.Errorf("unexpected persona id %q", got.PersonaID)
	}
	if len(got.Terms) == 0 {
		t.Error("expected rationale terms for a lexical match")
	}

	unrelated := m.Score(pythonPersona(), task)
	if unrelated.Value >= got.Value {
		t.Errorf("python persona (%v) should score below react persona (%v)", unrelated.Value, got.Value)
	}
}

func TestScoreUnrelatedTask(t *testing.T) {
	m := New(0)
	task := &models.TaskSignature{Text: "Unrelated cooking recipe question"}

	for _, def := range []*models.PersonaDefinition{reactPersona(), pythonPersona()} {
		got := m.Score(def, task)
		if got.Value >= 0.15 {
			t.Errorf("persona %s should not clear threshold for cooking task, got %v", def.ID, got.Value)
		}
	}
}

func TestScoreHintBonus(t *testing.T) {
	m := New(0.25)
	task := &models.TaskSignature{
		Text:  "Design the data layer",
		Hints: []string{"typescript"},
	}

	withHint := m.Score(reactPersona(), task)
	without := m.Score(reactPersona(), &models.TaskSignature{Text: task.Text})

	if withHint.Value <= without.Value {
		t.Errorf("hint should raise score: with=%v without=%v", withHint.Value, without.Value)
	}

	var hintTerm bool
	for _, term := range withHint.Terms {
		if term.Source == "hint" && term.Term == "typescript" {
			hintTerm = true
		}
	}
	if !hintTerm {
		t.Error("expected a hint rationale term")
	}
}

func TestScoreDeterministic(t *testing.T) {
	m := New(0.25)
	def := reactPersona()
	task := &models.TaskSignature{
		Text:  "Refactor the React component tree",
		Hints: []string{"react"},
	}

	first := m.Score(def, task)
	for i := 0; i < 50; i++ {
		again := m.Score(def, task)
		if again.Value != first.Value {
			t.Fatalf("score changed between runs: %v vs %v", again.Value, first.Value)
		}
		if len(again.Terms) != len(first.Terms) {
			t.Fatalf("rationale terms changed between runs")
		}
		for j := range again.Terms {
			if again.Terms[j] != first.Terms[j] {
				t.Fatalf("term %d changed: %+v vs %+v", j, again.Terms[j], first.Terms[j])
			}
		}
	}
}

func TestScoreNeverExceedsOne(t *testing.T) {
	m := New(0.9)
	def := reactPersona()
	task := &models.TaskSignature{
		Text:  "Refactor this React component TypeScript API types",
		Hints: []string{"react", "typescript", "component"},
	}

	got := m.Score(def, task)
	if got.Value > 1 {
		t.Errorf("score must be capped at 1, got %v", got.Value)
	}
}

func TestScoreEmptyTask(t *testing.T) {
	m := New(0)
	got := m.Score(reactPersona(), &models.TaskSignature{Text: "   "})
	if got.Value != 0 {
		t.Errorf("empty task should score 0, got %v", got.Value)
	}
}
