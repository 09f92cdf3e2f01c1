package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/rosterlabs/roster/pkg/models"
)

// PostgresSource reads persona records from a PostgreSQL table instead of
// a directory of files. Same contract as FileSource: an ordered sequence
// of records, each a PersonaDefinition or a parse failure.
type PostgresSource struct {
	db *sql.DB
}

// rebind converts ? placeholders to $1, $2, ... for PostgreSQL.
func rebind(query string) string {
	n := 1
	out := strings.Builder{}
	for _, ch := range query {
		if ch == '?' {
			out.WriteString(fmt.Sprintf("$%d", n))
			n++
		} else {
			out.WriteRune(ch)
		}
	}
	return out.String()
}

// NewPostgresSource opens a connection and ensures the personas schema.
func NewPostgresSource(dsn string) (*PostgresSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresSource{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *PostgresSource) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS personas (
		name TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		triggers TEXT[] NOT NULL DEFAULT '{}',
		profile_body TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return err
}

func (s *PostgresSource) Description() string {
	return "postgres:personas"
}

// Records returns all persona rows in name order. Row-level problems are
// reported per record so one bad row cannot hide the rest of the table.
func (s *PostgresSource) Records(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, description, color, triggers, profile_body
		FROM personas ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query personas: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var def models.PersonaDefinition
		var triggers pq.StringArray

		rec := Record{}
		if err := rows.Scan(&def.ID, &def.Description, &def.ColorTag, &triggers, &def.ProfileBody); err != nil {
			rec.Origin = "postgres:personas"
			rec.Err = &MalformedDefinitionError{Origin: rec.Origin, Reason: fmt.Sprintf("row scan: %v", err)}
			records = append(records, rec)
			continue
		}

		def.TriggerExamples = []string(triggers)
		def.SourceFile = "postgres:personas/" + def.ID
		def.LoadedAt = time.Now().UTC()

		rec.Origin = def.SourceFile
		rec.Def = def
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate personas: %w", err)
	}

	return records, nil
}

// Upsert inserts or replaces one persona row.
func (s *PostgresSource) Upsert(ctx context.Context, def *models.PersonaDefinition) error {
	_, err := s.db.ExecContext(ctx, rebind(`
		INSERT INTO personas (name, description, color, triggers, profile_body, updated_at)
		VALUES (?, ?, ?, ?, ?, now())
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			color = EXCLUDED.color,
			triggers = EXCLUDED.triggers,
			profile_body = EXCLUDED.profile_body,
			updated_at = now()`),
		def.ID, def.Description, def.ColorTag, pq.Array(def.TriggerExamples), def.ProfileBody)
	if err != nil {
		return fmt.Errorf("failed to upsert persona %s: %w", def.ID, err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresSource) Close() error {
	return s.db.Close()
}
