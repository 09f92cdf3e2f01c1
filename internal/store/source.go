package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rosterlabs/roster/pkg/models"
)

// Record is one raw persona record produced by a Source: either a resolved
// PersonaDefinition or a parse failure for that record.
type Record struct {
	Origin string
	Def    models.PersonaDefinition
	Err    error
}

// Source supplies an ordered sequence of raw persona records. The store
// validates and assembles them into a catalog; sources only parse.
type Source interface {
	// Records returns the records in source order.
	Records(ctx context.Context) ([]Record, error)

	// Description identifies the source for catalog metadata and logs.
	Description() string
}

// FileSource reads persona definition files from a directory. Each file is
// a metadata block (YAML frontmatter between "---" fences) followed by the
// free-text profile body:
//
//	---
//	name: react-typescript-architect
//	description: Frontend architecture with React and TypeScript
//	color: cyan
//	triggers:
//	  - Refactor this React component
//	  - TypeScript API types
//	---
//	You are a senior frontend architect...
type FileSource struct {
	dir string
}

// NewFileSource creates a source over *.md files in dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

func (s *FileSource) Description() string {
	return "file:" + s.dir
}

// Records reads and parses every persona file in lexical filename order.
func (s *FileSource) Records(ctx context.Context) ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona directory %s: %w", s.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	records := make([]Record, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		rec := Record{Origin: path}
		rec.Def, rec.Err = parsePersonaFile(path, data)
		records = append(records, rec)
	}

	return records, nil
}

// personaMeta is the frontmatter metadata block of a persona file.
type personaMeta struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Triggers    []string `yaml:"triggers"`
	Color       string   `yaml:"color"`
}

// parsePersonaFile splits frontmatter from the profile body and resolves
// the metadata into a PersonaDefinition. Field validation (non-empty
// description, at least one trigger) happens in the store, not here.
func parsePersonaFile(origin string, data []byte) (models.PersonaDefinition, error) {
	var def models.PersonaDefinition

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, "---\n") {
		return def, &MalformedDefinitionError{Origin: origin, Reason: "missing frontmatter block"}
	}

	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return def, &MalformedDefinitionError{Origin: origin, Reason: "unterminated frontmatter block"}
	}

	meta := rest[:end]
	body := rest[end+len("\n---"):]
	if i := strings.Index(body, "\n"); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}

	var m personaMeta
	if err := yaml.Unmarshal([]byte(meta), &m); err != nil {
		return def, &MalformedDefinitionError{Origin: origin, Reason: fmt.Sprintf("invalid metadata: %v", err)}
	}

	def = models.PersonaDefinition{
		ID:              strings.TrimSpace(m.Name),
		Description:     strings.TrimSpace(m.Description),
		TriggerExamples: m.Triggers,
		ColorTag:        m.Color,
		ProfileBody:     strings.TrimSpace(body),
		SourceFile:      origin,
		LoadedAt:        time.Now().UTC(),
	}
	return def, nil
}
