package mapper

import (
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is the canonical timestamp form for mapping rows.
const timeLayout = time.RFC3339Nano

// SQLiteStore persists mapping entries in a SQLite database so a later run
// can resume with the identifiers a previous run allocated.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens (creating if necessary) the mapping database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening mapping store %s: %w", path, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing mapping schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Put inserts the entry, enforcing write-once semantics. Re-putting an
// identical entry is a no-op; a conflicting entry returns ErrMappingFrozen.
func (s *SQLiteStore) Put(entry types.MappingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}

	var existing string
	err := s.db.QueryRow(
		"SELECT target_id FROM id_mappings WHERE entity_type = ? AND source_id = ?",
		string(entry.EntityType), entry.SourceID,
	).Scan(&existing)
	switch {
	case err == nil:
		if existing == entry.TargetID {
			return nil
		}
		return types.ErrMappingFrozen
	case err != sql.ErrNoRows:
		return fmt.Errorf("checking mapping entry: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT INTO id_mappings (entity_type, source_id, target_id, code, created_at) VALUES (?, ?, ?, ?, ?)",
		string(entry.EntityType), entry.SourceID, entry.TargetID, entry.Code,
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting mapping entry: %w", err)
	}
	return nil
}

// All returns every persisted entry.
func (s *SQLiteStore) All() ([]types.MappingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}

	rows, err := s.db.Query(
		"SELECT entity_type, source_id, target_id, code, created_at FROM id_mappings",
	)
	if err != nil {
		return nil, fmt.Errorf("querying mapping entries: %w", err)
	}
	defer rows.Close()

	var entries []types.MappingEntry
	for rows.Next() {
		var (
			entityType string
			createdAt  string
			e          types.MappingEntry
		)
		if err := rows.Scan(&entityType, &e.SourceID, &e.TargetID, &e.Code, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning mapping entry: %w", err)
		}
		e.EntityType = types.EntityType(entityType)
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mapping entries: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database. Idempotent.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
