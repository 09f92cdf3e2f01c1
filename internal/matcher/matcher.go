// Package matcher scores persona definitions against task signatures.
// Scoring is purely lexical and deterministic: the same (definition, task)
// pair always yields the same score against an unchanged catalog.
package matcher

import (
	"sort"
	"strings"

	"github.com/rosterlabs/roster/pkg/models"
)

const (
	// triggerWeight and descriptionWeight split the lexical portion of the
	// score between the best trigger example and the description.
	triggerWeight     = 0.6
	descriptionWeight = 0.4

	// DefaultHintBonus is the per-hint bonus when a declared task hint
	// appears in the definition's trigger examples or description.
	DefaultHintBonus = 0.25
)

// stopwords are dropped before token-set comparison.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "this": true, "that": true,
	"these": true, "those": true, "i": true, "me": true, "my": true,
	"we": true, "our": true, "you": true, "your": true, "it": true,
	"its": true, "is": true, "are": true, "was": true, "be": true,
	"to": true, "of": true, "in": true, "on": true, "at": true,
	"for": true, "with": true, "from": true, "into": true, "and": true,
	"or": true, "not": true, "no": true, "do": true, "does": true,
	"can": true, "could": true, "should": true, "would": true,
	"how": true, "what": true, "when": true, "where": true, "why": true,
	"please": true, "some": true, "any": true, "all": true,
}

// Matcher computes match scores for persona definitions.
type Matcher struct {
	hintBonus float64
}

// New creates a matcher with the given hint bonus weight.
// A non-positive bonus falls back to DefaultHintBonus.
func New(hintBonus float64) *Matcher {
	if hintBonus <= 0 {
		hintBonus = DefaultHintBonus
	}
	return &Matcher{hintBonus: hintBonus}
}

// Score computes the normalized [0,1] confidence of one persona definition
// against one task, along with the rationale terms that contributed.
func (m *Matcher) Score(def *models.PersonaDefinition, task *models.TaskSignature) models.MatchScore {
	score := models.MatchScore{PersonaID: def.ID}

	taskTokens := Tokenize(task.Text)
	if len(taskTokens) == 0 {
		return score
	}

	// Best trigger example wins; triggers are short phrasings, so the
	// maximum over them is more meaningful than an average.
	var bestTrigger float64
	var bestShared []string
	for _, trigger := range def.TriggerExamples {
		sim, shared := similarity(taskTokens, Tokenize(trigger))
		if sim > bestTrigger {
			bestTrigger = sim
			bestShared = shared
		}
	}

	descSim, descShared := similarity(taskTokens, Tokenize(def.Description))

	value := triggerWeight*bestTrigger + descriptionWeight*descSim

	for _, term := range bestShared {
		score.Terms = append(score.Terms, models.ScoreTerm{
			Term:   term,
			Weight: triggerWeight * bestTrigger / float64(len(bestShared)),
			Source: "trigger",
		})
	}
	for _, term := range descShared {
		score.Terms = append(score.Terms, models.ScoreTerm{
			Term:   term,
			Weight: descriptionWeight * descSim / float64(len(descShared)),
			Source: "description",
		})
	}

	// Explicit hints: a declared technology/domain tag that the definition
	// also references earns a fixed bonus per hint.
	defTokens := make(map[string]bool)
	for _, tok := range Tokenize(def.Description) {
		defTokens[tok] = true
	}
	for _, trigger := range def.TriggerExamples {
		for _, tok := range Tokenize(trigger) {
			defTokens[tok] = true
		}
	}
	for _, hint := range task.Hints {
		matched := false
		for _, tok := range Tokenize(hint) {
			if defTokens[tok] {
				matched = true
				break
			}
		}
		if matched {
			value += m.hintBonus
			score.Terms = append(score.Terms, models.ScoreTerm{
				Term:   strings.ToLower(strings.TrimSpace(hint)),
				Weight: m.hintBonus,
				Source: "hint",
			})
		}
	}

	if value > 1 {
		value = 1
	}
	score.Value = value
	return score
}

// Tokenize lowercases text, splits it on non-alphanumeric runes, drops
// stopwords and single characters, and applies light suffix stripping so
// "refactoring" and "refactor" compare equal. Duplicates are removed and
// the result is sorted for stable downstream iteration.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})

	seen := make(map[string]bool, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := stem(f)
		if len(tok) < 2 || stopwords[tok] {
			continue
		}
		if !seen[tok] {
			seen[tok] = true
			tokens = append(tokens, tok)
		}
	}
	sort.Strings(tokens)
	return tokens
}

// stem strips common English suffixes. Deliberately conservative: a suffix
// is removed only when enough of the word remains to stay distinctive.
func stem(tok string) string {
	if strings.HasSuffix(tok, "ing") && len(tok) >= 7 {
		return tok[:len(tok)-3]
	}
	if strings.HasSuffix(tok, "ies") && len(tok) >= 5 {
		return tok[:len(tok)-3] + "y"
	}
	if strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") && len(tok) >= 4 {
		return tok[:len(tok)-1]
	}
	return tok
}

// similarity is the Jaccard index over two token sets, plus the sorted
// shared tokens for score rationale.
func similarity(a, b []string) (float64, []string) {
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}

	set := make(map[string]bool, len(a))
	for _, tok := range a {
		set[tok] = true
	}

	var shared []string
	for _, tok := range b {
		if set[tok] {
			shared = append(shared, tok)
		}
	}
	if len(shared) == 0 {
		return 0, nil
	}

	union := len(a) + len(b) - len(shared)
	sort.Strings(shared)
	return float64(len(shared)) / float64(union), shared
}
