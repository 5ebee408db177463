package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// StateStore persists the last known native state value of each entity.
//
// The entity layer calls SaveState on every genuine state change and
// LastState once at entity startup to restore assumed-state entities.
// Every save also appends to the state history table.
type StateStore struct {
	db *sql.DB
}

// HistoryEntry is one recorded state transition.
type HistoryEntry struct {
	EntityID  string `json:"entity_id"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at"`
}

// NewStateStore creates a state store backed by an open database.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *StateStore: Store instance ready for use
func NewStateStore(db *DB) *StateStore {
	return &StateStore{db: db.DB}
}

// SaveState upserts the latest state for an entity and appends a history row.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - entityID: Unique entity identifier
//   - state: Native state value to persist (may be empty for "no value")
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (s *StateStore) SaveState(ctx context.Context, entityID string, state string) error {
	if entityID == "" {
		return fmt.Errorf("entity id is required")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entity_state (entity_id, state, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(entity_id) DO UPDATE SET
		   state = excluded.state,
		   updated_at = excluded.updated_at`,
		entityID, state,
	)
	if err != nil {
		return fmt.Errorf("saving entity state: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO entity_state_history (entity_id, state) VALUES (?, ?)",
		entityID, state,
	)
	if err != nil {
		return fmt.Errorf("recording state history: %w", err)
	}

	return nil
}

// LastState returns the last persisted state for an entity.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - entityID: Unique entity identifier
//
// Returns:
//   - string: Persisted state value
//   - bool: false when no state has ever been persisted for this entity
//   - error: nil on success, otherwise the underlying query error
func (s *StateStore) LastState(ctx context.Context, entityID string) (string, bool, error) {
	if entityID == "" {
		return "", false, fmt.Errorf("entity id is required")
	}

	var state string
	err := s.db.QueryRowContext(ctx,
		"SELECT state FROM entity_state WHERE entity_id = ?",
		entityID,
	).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("loading entity state: %w", err)
	}

	return state, true, nil
}

// History returns recent state transitions for an entity, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - entityID: Unique entity identifier
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []HistoryEntry: Transitions ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (s *StateStore) History(ctx context.Context, entityID string, limit int) ([]HistoryEntry, error) {
	if entityID == "" {
		return nil, fmt.Errorf("entity id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_id, state, created_at
		 FROM entity_state_history
		 WHERE entity_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		entityID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cleanup

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.EntityID, &e.State, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}

	return entries, nil
}
