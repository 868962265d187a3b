package mapper

import (
	"sync"

	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

// Store persists mapping entries across runs. Entries are write-once:
// Put returns types.ErrMappingFrozen when an entry with the same
// (entityType, sourceId) already exists with a different target identifier.
type Store interface {
	// Put persists one entry. Re-putting an identical entry is a no-op.
	Put(entry types.MappingEntry) error
	// All returns every persisted entry, in no particular order.
	All() ([]types.MappingEntry, error)
	// Close releases store resources. Idempotent.
	Close() error
}

// MemoryStore is an in-process Store for single-run migrations and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[mappingKey]types.MappingEntry
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory mapping store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[mappingKey]types.MappingEntry)}
}

// Put stores the entry, enforcing write-once semantics.
func (s *MemoryStore) Put(entry types.MappingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := mappingKey{entry.EntityType, entry.SourceID}
	if prior, ok := s.entries[key]; ok {
		if prior.TargetID == entry.TargetID {
			return nil
		}
		return types.ErrMappingFrozen
	}
	s.entries[key] = entry
	return nil
}

// All returns a copy of every stored entry.
func (s *MemoryStore) All() ([]types.MappingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]types.MappingEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	return entries, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
