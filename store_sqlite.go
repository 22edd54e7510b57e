package menu

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists menu state in a sqlite database. One row per
// (viewer, menu); the snapshot itself is stored as JSON next to its schema
// version so future layouts can migrate on load.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("menu: opening state database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStoreDB wraps an existing database handle.
func NewSQLiteStoreDB(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS menu_state (
        viewer_id      TEXT NOT NULL,
        menu_id        TEXT NOT NULL,
        payload        JSON NOT NULL,
        schema_version INTEGER NOT NULL,
        updated_at     DATETIME NOT NULL,
        PRIMARY KEY (viewer_id, menu_id)
    );`
	_, err := s.db.ExecContext(context.Background(), query)
	if err != nil {
		return fmt.Errorf("menu: migrating state table: %w", err)
	}
	return nil
}

// Save implements StateStore.
func (s *SQLiteStore) Save(ctx context.Context, viewerID, menuID string, state *PersistedState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("menu: encoding state: %w", err)
	}

	query := `
    INSERT INTO menu_state (viewer_id, menu_id, payload, schema_version, updated_at)
    VALUES (?, ?, ?, ?, ?)
    ON CONFLICT (viewer_id, menu_id) DO UPDATE SET
        payload = excluded.payload,
        schema_version = excluded.schema_version,
        updated_at = excluded.updated_at`

	updatedAt := state.UpdatedAt.UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, query, viewerID, menuID, string(payload), state.SchemaVersion, updatedAt)
	if err != nil {
		return fmt.Errorf("menu: saving state: %w", err)
	}
	return nil
}

// Load implements StateStore. Returns (nil, nil) when no record exists.
func (s *SQLiteStore) Load(ctx context.Context, viewerID, menuID string) (*PersistedState, error) {
	query := `SELECT payload FROM menu_state WHERE viewer_id = ? AND menu_id = ?`

	var payload string
	err := s.db.QueryRowContext(ctx, query, viewerID, menuID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("menu: loading state: %w", err)
	}

	var state PersistedState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return nil, fmt.Errorf("menu: decoding state: %w", err)
	}
	return &state, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
