package target

import (
	"context"
	"sort"
	"sync"

	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

// MemStore is an in-memory Store. It backs tests and dry runs, and mirrors
// the semantics of the document store: documents keyed by normalized code,
// no referential enforcement at write time.
type MemStore struct {
	mu    sync.RWMutex
	roles map[string]*types.Role
	views map[string]*types.View
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		roles: make(map[string]*types.Role),
		views: make(map[string]*types.View),
	}
}

// FindRoleByCode returns a copy of the stored role or types.ErrNotFound.
func (s *MemStore) FindRoleByCode(ctx context.Context, code string) (*types.Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.roles[code]
	if !ok {
		return nil, types.ErrNotFound
	}
	return copyRole(r), nil
}

// FindViewByCode returns a copy of the stored view or types.ErrNotFound.
func (s *MemStore) FindViewByCode(ctx context.Context, code string) (*types.View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.views[code]
	if !ok {
		return nil, types.ErrNotFound
	}
	return copyView(v), nil
}

// UpsertRole stores a copy of the document keyed by its code.
func (s *MemStore) UpsertRole(ctx context.Context, role *types.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roles[role.Code] = copyRole(role)
	return nil
}

// UpsertView stores a copy of the document keyed by its code.
func (s *MemStore) UpsertView(ctx context.Context, view *types.View) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.views[view.Code] = copyView(view)
	return nil
}

// CountRoles returns the number of stored role documents.
func (s *MemStore) CountRoles(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.roles)), nil
}

// CountViews returns the number of stored view documents.
func (s *MemStore) CountViews(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.views)), nil
}

// AllRoles returns copies of every role, ordered by code.
func (s *MemStore) AllRoles(ctx context.Context) ([]*types.Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles := make([]*types.Role, 0, len(s.roles))
	for _, r := range s.roles {
		roles = append(roles, copyRole(r))
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Code < roles[j].Code })
	return roles, nil
}

// AllViews returns copies of every view, ordered by code.
func (s *MemStore) AllViews(ctx context.Context) ([]*types.View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]*types.View, 0, len(s.views))
	for _, v := range s.views {
		views = append(views, copyView(v))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Code < views[j].Code })
	return views, nil
}

// EnsureIndexes is a no-op: the in-memory maps are the code index.
func (s *MemStore) EnsureIndexes(ctx context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemStore) Close(ctx context.Context) error { return nil }

func copyRole(r *types.Role) *types.Role {
	out := *r
	out.Views = copyIDs(r.Views)
	return &out
}

func copyView(v *types.View) *types.View {
	out := *v
	out.Children = copyIDs(v.Children)
	out.Roles = copyIDs(v.Roles)
	if v.Parent != nil {
		p := *v.Parent
		out.Parent = &p
	}
	out.Metadata = make(map[string]any, len(v.Metadata))
	for k, val := range v.Metadata {
		out.Metadata[k] = val
	}
	return &out
}

// copyIDs copies an identifier slice. Empty stays empty, never nil: the
// collection fields of a stored document are always present.
func copyIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
