// Package mapper implements the identity mapper: it allocates and recalls a
// stable target identifier for every source entity. Allocation is
// deterministic — a UUIDv5 of the normalized natural key when the entity has
// one, of the entity type plus source id otherwise — so an unchanged source
// yields the same target identifiers on every run. Entries are write-once and
// may be persisted across runs through a Store.
package mapper

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

// idNamespace is the fixed UUIDv5 namespace for target identifier allocation.
// Changing it would re-identify every entity; it is part of the wire contract.
var idNamespace = uuid.MustParse("7b0e3d6a-4c1f-48a9-9f6e-2d85c0a1b934")

type mappingKey struct {
	entityType types.EntityType
	sourceID   int64
}

// Mapper resolves (entityType, sourceId) pairs to target identifiers.
// Safe for concurrent use: all allocation goes through a single mutex so two
// batches can never allocate conflicting entries for the same source id.
type Mapper struct {
	mu       sync.Mutex
	store    Store
	bySource map[mappingKey]types.MappingEntry
	byTarget map[string]types.MappingEntry // keyed by entityType+targetID

	now func() time.Time
}

// New creates a Mapper backed by the given store. Entries already present in
// the store (a resumed run) are loaded up front so recall never races with
// allocation.
func New(store Store) (*Mapper, error) {
	m := &Mapper{
		store:    store,
		bySource: make(map[mappingKey]types.MappingEntry),
		byTarget: make(map[string]types.MappingEntry),
		now:      time.Now,
	}

	existing, err := store.All()
	if err != nil {
		return nil, fmt.Errorf("loading existing mapping: %w", err)
	}
	for _, e := range existing {
		m.bySource[mappingKey{e.EntityType, e.SourceID}] = e
		m.byTarget[targetKey(e.EntityType, e.TargetID)] = e
	}
	return m, nil
}

// Resolve returns the target identifier for the given source entity,
// allocating one on first call. code may be empty; when present it is
// normalized and the identifier is derived from it, which is what makes
// re-runs idempotent. Returns a *types.MappingConflictError if the derived
// identifier is already owned by a different source id (duplicate code).
func (m *Mapper) Resolve(entityType types.EntityType, sourceID int64, code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := mappingKey{entityType, sourceID}
	if e, ok := m.bySource[key]; ok {
		return e.TargetID, nil
	}

	normalized := types.NormalizeCode(code)
	targetID := allocate(entityType, sourceID, normalized)

	if prior, ok := m.byTarget[targetKey(entityType, targetID)]; ok && prior.SourceID != sourceID {
		return "", &types.MappingConflictError{
			EntityType: entityType,
			Code:       normalized,
			SourceID:   sourceID,
			ExistingID: prior.SourceID,
			TargetID:   targetID,
		}
	}

	entry := types.MappingEntry{
		EntityType: entityType,
		SourceID:   sourceID,
		TargetID:   targetID,
		Code:       normalized,
		CreatedAt:  m.now().UTC(),
	}
	if err := m.store.Put(entry); err != nil {
		return "", fmt.Errorf("persisting mapping entry: %w", err)
	}
	m.bySource[key] = entry
	m.byTarget[targetKey(entityType, targetID)] = entry
	return targetID, nil
}

// Lookup returns the already-allocated identifier for a source entity without
// allocating. The second result is false if no entry exists yet.
func (m *Mapper) Lookup(entityType types.EntityType, sourceID int64) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.bySource[mappingKey{entityType, sourceID}]
	return e.TargetID, ok
}

// Snapshot returns all mapping entries ordered by entity type then source id.
func (m *Mapper) Snapshot() []types.MappingEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]types.MappingEntry, 0, len(m.bySource))
	for _, e := range m.bySource {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].EntityType != entries[j].EntityType {
			return entries[i].EntityType < entries[j].EntityType
		}
		return entries[i].SourceID < entries[j].SourceID
	})
	return entries
}

// allocate derives the deterministic target identifier. The natural key wins
// when present; the source id scheme is the fallback for entities without one.
func allocate(entityType types.EntityType, sourceID int64, code string) string {
	if code != "" {
		return uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%s:%s", entityType, code))).String()
	}
	return uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%s#%d", entityType, sourceID))).String()
}

func targetKey(entityType types.EntityType, targetID string) string {
	return string(entityType) + "/" + targetID
}
