package target

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

func testSnapshot() *types.MappedSnapshot {
	created := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	dashboard := &types.View{
		ID: "view-dashboard", Code: "DASHBOARD", Name: "Dashboard",
		IsActive: true, Order: 1,
		Metadata: map[string]any{}, Children: []string{}, Roles: []string{"role-admin"},
		CreatedAt: created, UpdatedAt: created,
	}
	admin := &types.Role{
		ID: "role-admin", Code: "ADMIN", Name: "Administrator",
		IsActive: true, Views: []string{"view-dashboard"},
		CreatedAt: created, UpdatedAt: created,
	}
	return &types.MappedSnapshot{
		Roles: []*types.Role{admin},
		Views: []*types.View{dashboard},
	}
}

func newTestLoader(store Store) *Loader {
	l := NewLoader(store, 2, zerolog.Nop())
	l.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }
	return l
}

func TestLoadCreatesDocuments(t *testing.T) {
	store := NewMemStore()
	loader := newTestLoader(store)

	stats, err := loader.Load(context.Background(), testSnapshot())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Roles.Created)
	assert.Equal(t, 1, stats.Views.Created)
	assert.True(t, stats.Clean())

	role, err := store.FindRoleByCode(context.Background(), "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, "role-admin", role.ID)
	assert.Equal(t, []string{"view-dashboard"}, role.Views)
}

func TestLoadSecondRunIsNoOp(t *testing.T) {
	store := NewMemStore()
	loader := newTestLoader(store)

	_, err := loader.Load(context.Background(), testSnapshot())
	require.NoError(t, err)

	before, err := store.FindViewByCode(context.Background(), "DASHBOARD")
	require.NoError(t, err)

	stats, err := loader.Load(context.Background(), testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Roles.Unchanged)
	assert.Equal(t, 1, stats.Views.Unchanged)
	assert.Zero(t, stats.Roles.Created)
	assert.Zero(t, stats.Views.Created)

	after, err := store.FindViewByCode(context.Background(), "DASHBOARD")
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt, "unchanged documents must not drift")
}

func TestLoadUpdatesChangedDocument(t *testing.T) {
	store := NewMemStore()
	loader := newTestLoader(store)

	_, err := loader.Load(context.Background(), testSnapshot())
	require.NoError(t, err)

	changed := testSnapshot()
	changed.Roles[0].Name = "Site Administrator"
	changed.Roles[0].CreatedAt = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) // must not win

	stats, err := loader.Load(context.Background(), changed)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Roles.Updated)
	assert.Equal(t, 1, stats.Views.Unchanged)

	role, err := store.FindRoleByCode(context.Background(), "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, "Site Administrator", role.Name)
	assert.Equal(t, time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC), role.CreatedAt,
		"original creation time is preserved across updates")
	assert.Equal(t, loader.now(), role.UpdatedAt)
}

func TestLoadDetectsWriteConflict(t *testing.T) {
	store := NewMemStore()
	loader := newTestLoader(store)

	_, err := loader.Load(context.Background(), testSnapshot())
	require.NoError(t, err)

	hijacked := testSnapshot()
	hijacked.Roles[0].ID = "role-other"

	stats, err := loader.Load(context.Background(), hijacked)
	require.NoError(t, err, "conflicts are collected, not returned")
	require.Len(t, stats.Conflicts, 1)
	assert.Equal(t, types.EntityRole, stats.Conflicts[0].EntityType)
	assert.Equal(t, "ADMIN", stats.Conflicts[0].Code)
	assert.Equal(t, "role-other", stats.Conflicts[0].WantID)
	assert.Equal(t, "role-admin", stats.Conflicts[0].HaveID)
	assert.Equal(t, 1, stats.Roles.Failed)
	assert.False(t, stats.Clean())

	// The existing document is untouched; sibling writes proceeded.
	role, err := store.FindRoleByCode(context.Background(), "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, "role-admin", role.ID)
	assert.Equal(t, 1, stats.Views.Unchanged)
}

// flakyStore fails the first UpsertView call, then recovers. It simulates a
// transient write failure that phase 2 should patch over.
type flakyStore struct {
	Store
	viewFailures int
}

func (s *flakyStore) UpsertView(ctx context.Context, view *types.View) error {
	if s.viewFailures > 0 {
		s.viewFailures--
		return errors.New("transient write failure")
	}
	return s.Store.UpsertView(ctx, view)
}

func TestLoadPatchesTransientFailures(t *testing.T) {
	store := &flakyStore{Store: NewMemStore(), viewFailures: 1}
	loader := newTestLoader(store)

	stats, err := loader.Load(context.Background(), testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Patched)
	assert.Equal(t, 1, stats.Roles.Created)
	assert.Zero(t, stats.Views.Failed)

	view, err := store.FindViewByCode(context.Background(), "DASHBOARD")
	require.NoError(t, err)
	assert.Equal(t, "view-dashboard", view.ID)
}

func TestLoadPersistentFailureSurfaces(t *testing.T) {
	store := &flakyStore{Store: NewMemStore(), viewFailures: 2}
	loader := newTestLoader(store)

	stats, err := loader.Load(context.Background(), testSnapshot())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrTargetWrite)
	assert.Equal(t, 1, stats.Views.Failed)
	assert.Zero(t, stats.Patched)
}

func TestLoadCancelledContext(t *testing.T) {
	store := NewMemStore()
	loader := newTestLoader(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := loader.Load(ctx, testSnapshot())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, stats, "partial stats are returned on cancellation")
}

func TestLoadEmptySnapshot(t *testing.T) {
	loader := newTestLoader(NewMemStore())

	stats, err := loader.Load(context.Background(), &types.MappedSnapshot{})
	require.NoError(t, err)
	assert.True(t, stats.Clean())
	assert.Zero(t, stats.Roles.Total())
	assert.Zero(t, stats.Views.Total())
}
