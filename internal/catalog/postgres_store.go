package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements DefinitionStore backed by the rule_definitions table
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Add inserts a definition; conditions are stored as JSONB
func (s *PostgresStore) Add(def *Definition) error {
	conditions, err := json.Marshal(def.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode conditions: %w", err)
	}
	if def.CreatedAt.IsZero() {
		def.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.Exec(`
		INSERT INTO rule_definitions (id, name, description, schema_name, event, conditions, action_kind, action_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, def.ID, def.Name, def.Description, def.Schema, def.Event, conditions,
		def.Action.Kind, def.Action.Value, def.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert rule definition: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateDefinition, def.ID)
	}

	return nil
}

// List returns every definition ordered by creation time
func (s *PostgresStore) List() ([]*Definition, error) {
	rows, err := s.db.Query(`
		SELECT id, name, description, schema_name, event, conditions, action_kind, action_value, created_at
		FROM rule_definitions
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rule definitions: %w", err)
	}
	defer rows.Close()

	defs := []*Definition{}
	for rows.Next() {
		var d Definition
		var conditions []byte
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Schema, &d.Event,
			&conditions, &d.Action.Kind, &d.Action.Value, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule definition: %w", err)
		}
		if err := json.Unmarshal(conditions, &d.Conditions); err != nil {
			return nil, fmt.Errorf("failed to decode conditions of %s: %w", d.ID, err)
		}
		defs = append(defs, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rule definitions: %w", err)
	}

	return defs, nil
}

// Delete removes a definition by ID
func (s *PostgresStore) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM rule_definitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule definition: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrDefinitionNotFound, id)
	}

	return nil
}
