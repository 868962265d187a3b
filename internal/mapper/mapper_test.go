package mapper

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

func newTestMapper(t *testing.T) *Mapper {
	t.Helper()
	m, err := New(NewMemoryStore())
	require.NoError(t, err)
	return m
}

func TestResolveIsDeterministicAcrossMappers(t *testing.T) {
	m1 := newTestMapper(t)
	m2 := newTestMapper(t)

	id1, err := m1.Resolve(types.EntityRole, 1, "superadmin")
	require.NoError(t, err)
	id2, err := m2.Resolve(types.EntityRole, 99, "SUPERADMIN")
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "same normalized code must yield the same target id regardless of source id or run")
}

func TestResolveRecallsFirstAllocation(t *testing.T) {
	m := newTestMapper(t)

	first, err := m.Resolve(types.EntityView, 10, "ADMIN_PANEL")
	require.NoError(t, err)
	again, err := m.Resolve(types.EntityView, 10, "ADMIN_PANEL")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	// Recall wins even if the code argument changed; the entry is frozen.
	renamed, err := m.Resolve(types.EntityView, 10, "RENAMED")
	require.NoError(t, err)
	assert.Equal(t, first, renamed)
}

func TestResolveEntityTypesDoNotCollide(t *testing.T) {
	m := newTestMapper(t)

	roleID, err := m.Resolve(types.EntityRole, 1, "ADMIN")
	require.NoError(t, err)
	viewID, err := m.Resolve(types.EntityView, 1, "ADMIN")
	require.NoError(t, err)
	assert.NotEqual(t, roleID, viewID)
}

func TestResolveDuplicateCodeConflicts(t *testing.T) {
	m := newTestMapper(t)

	_, err := m.Resolve(types.EntityView, 1, "DUPLICATE")
	require.NoError(t, err)

	_, err = m.Resolve(types.EntityView, 2, "DUPLICATE")
	var conflict *types.MappingConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, types.EntityView, conflict.EntityType)
	assert.Equal(t, "DUPLICATE", conflict.Code)
	assert.Equal(t, int64(1), conflict.ExistingID)
	assert.Equal(t, int64(2), conflict.SourceID)
}

func TestResolveWithoutCodeFallsBackToSourceID(t *testing.T) {
	m := newTestMapper(t)

	a, err := m.Resolve(types.EntityRole, 5, "")
	require.NoError(t, err)
	b, err := m.Resolve(types.EntityRole, 6, "")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "distinct source ids without codes must not collide")

	again := newTestMapper(t)
	c, err := again.Resolve(types.EntityRole, 5, "")
	require.NoError(t, err)
	assert.Equal(t, a, c, "fallback allocation is still deterministic")
}

func TestLookupDoesNotAllocate(t *testing.T) {
	m := newTestMapper(t)

	_, ok := m.Lookup(types.EntityRole, 1)
	assert.False(t, ok)

	id, err := m.Resolve(types.EntityRole, 1, "ADMIN")
	require.NoError(t, err)

	got, ok := m.Lookup(types.EntityRole, 1)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestSnapshotIsOrdered(t *testing.T) {
	m := newTestMapper(t)

	_, err := m.Resolve(types.EntityView, 2, "B")
	require.NoError(t, err)
	_, err = m.Resolve(types.EntityView, 1, "A")
	require.NoError(t, err)
	_, err = m.Resolve(types.EntityRole, 3, "C")
	require.NoError(t, err)

	snap := m.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, types.EntityRole, snap[0].EntityType)
	assert.Equal(t, int64(1), snap[1].SourceID)
	assert.Equal(t, int64(2), snap[2].SourceID)
}

func TestResolveSerializesConcurrentAllocation(t *testing.T) {
	m := newTestMapper(t)

	const workers = 16
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := m.Resolve(types.EntityView, 42, "SHARED")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id, "all workers must observe the same allocation")
	}
	assert.Len(t, m.Snapshot(), 1)
}

func TestNewLoadsExistingEntries(t *testing.T) {
	store := NewMemoryStore()
	first, err := New(store)
	require.NoError(t, err)
	id, err := first.Resolve(types.EntityRole, 7, "OPERATOR")
	require.NoError(t, err)

	resumed, err := New(store)
	require.NoError(t, err)
	got, ok := resumed.Lookup(types.EntityRole, 7)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
