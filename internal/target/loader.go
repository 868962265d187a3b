package target

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

// Loader writes a mapped snapshot to the target store idempotently. Identity
// is the natural code, so re-running with an unchanged snapshot produces
// no-op upserts: no new documents and no field drift.
//
// The write is two-phase. Phase 1 upserts every document with all reference
// fields included; the store does not enforce referential existence, so a
// view may be written before the roles it references. Phase 2 re-applies the
// fully-resolved document for any entity whose phase-1 write failed
// transiently, so a partial batch failure cannot leave a document missing
// references.
type Loader struct {
	store     Store
	batchSize int
	log       zerolog.Logger

	// now is stubbed in tests.
	now func() time.Time
}

// NewLoader creates a Loader writing through store in batches of batchSize.
func NewLoader(store Store, batchSize int, log zerolog.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = types.DefaultBatchSize
	}
	return &Loader{store: store, batchSize: batchSize, log: log, now: time.Now}
}

// pendingPatch records a document whose phase-1 write failed transiently.
type pendingPatch struct {
	entityType types.EntityType
	apply      func(ctx context.Context) error
	code       string
}

// Load writes the snapshot. Write conflicts are fatal per entity, collected
// in the returned stats, and do not abort sibling writes. Transient write
// failures that survive phase 2 are returned wrapped with
// types.ErrTargetWrite; retrying the whole load is safe and is the external
// scheduler's call. Cancellation is honored between batches: the in-flight
// batch completes and partial stats are returned with the context error.
func (l *Loader) Load(ctx context.Context, snap *types.MappedSnapshot) (*types.LoadStats, error) {
	stats := &types.LoadStats{}
	var pending []pendingPatch

	// Phase 1: skeleton upsert, views then roles. Order between the two
	// types is irrelevant because references are ids from the mapping, not
	// live links.
	for _, batch := range chunkViews(snap.Views, l.batchSize) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		for _, view := range batch {
			l.upsertView(ctx, view, stats, &pending)
		}
	}
	for _, batch := range chunkRoles(snap.Roles, l.batchSize) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		for _, role := range batch {
			l.upsertRole(ctx, role, stats, &pending)
		}
	}

	// Phase 2: consistency patch. Re-apply the full document for anything
	// phase 1 could not write. No-op on a clean phase 1.
	var writeErrs []error
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := p.apply(ctx); err != nil {
			writeErrs = append(writeErrs, err)
			switch p.entityType {
			case types.EntityRole:
				stats.Roles.Failed++
			case types.EntityView:
				stats.Views.Failed++
			}
			continue
		}
		stats.Patched++
	}

	l.log.Info().
		Int("roles_created", stats.Roles.Created).
		Int("roles_updated", stats.Roles.Updated).
		Int("roles_unchanged", stats.Roles.Unchanged).
		Int("views_created", stats.Views.Created).
		Int("views_updated", stats.Views.Updated).
		Int("views_unchanged", stats.Views.Unchanged).
		Int("patched", stats.Patched).
		Int("conflicts", len(stats.Conflicts)).
		Msg("load complete")

	if len(writeErrs) > 0 {
		return stats, fmt.Errorf("%d documents failed both write phases: %w",
			len(writeErrs), errors.Join(append([]error{types.ErrTargetWrite}, writeErrs...)...))
	}
	return stats, nil
}

// upsertView performs the idempotent single-document write for a view.
func (l *Loader) upsertView(ctx context.Context, view *types.View, stats *types.LoadStats, pending *[]pendingPatch) {
	existing, err := l.store.FindViewByCode(ctx, view.Code)
	switch {
	case errors.Is(err, types.ErrNotFound):
		if err := l.store.UpsertView(ctx, view); err != nil {
			l.deferPatch(pending, types.EntityView, view.Code, func(ctx context.Context) error {
				return l.store.UpsertView(ctx, view)
			})
			return
		}
		stats.Views.Created++
	case err != nil:
		l.deferPatch(pending, types.EntityView, view.Code, func(ctx context.Context) error {
			return l.store.UpsertView(ctx, view)
		})
	case existing.ID != view.ID:
		stats.Conflicts = append(stats.Conflicts, &types.WriteConflictError{
			EntityType: types.EntityView, Code: view.Code,
			WantID: view.ID, HaveID: existing.ID,
		})
		stats.Views.Failed++
	case existing.Equal(view):
		stats.Views.Unchanged++
	default:
		updated := *view
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = l.now().UTC()
		if err := l.store.UpsertView(ctx, &updated); err != nil {
			l.deferPatch(pending, types.EntityView, view.Code, func(ctx context.Context) error {
				return l.store.UpsertView(ctx, &updated)
			})
			return
		}
		stats.Views.Updated++
	}
}

// upsertRole performs the idempotent single-document write for a role.
func (l *Loader) upsertRole(ctx context.Context, role *types.Role, stats *types.LoadStats, pending *[]pendingPatch) {
	existing, err := l.store.FindRoleByCode(ctx, role.Code)
	switch {
	case errors.Is(err, types.ErrNotFound):
		if err := l.store.UpsertRole(ctx, role); err != nil {
			l.deferPatch(pending, types.EntityRole, role.Code, func(ctx context.Context) error {
				return l.store.UpsertRole(ctx, role)
			})
			return
		}
		stats.Roles.Created++
	case err != nil:
		l.deferPatch(pending, types.EntityRole, role.Code, func(ctx context.Context) error {
			return l.store.UpsertRole(ctx, role)
		})
	case existing.ID != role.ID:
		stats.Conflicts = append(stats.Conflicts, &types.WriteConflictError{
			EntityType: types.EntityRole, Code: role.Code,
			WantID: role.ID, HaveID: existing.ID,
		})
		stats.Roles.Failed++
	case existing.Equal(role):
		stats.Roles.Unchanged++
	default:
		updated := *role
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = l.now().UTC()
		if err := l.store.UpsertRole(ctx, &updated); err != nil {
			l.deferPatch(pending, types.EntityRole, role.Code, func(ctx context.Context) error {
				return l.store.UpsertRole(ctx, &updated)
			})
			return
		}
		stats.Roles.Updated++
	}
}

func (l *Loader) deferPatch(pending *[]pendingPatch, entityType types.EntityType, code string, apply func(context.Context) error) {
	l.log.Warn().Str("entity", string(entityType)).Str("code", code).Msg("deferring document to consistency patch")
	*pending = append(*pending, pendingPatch{entityType: entityType, apply: apply, code: code})
}

func chunkViews(views []*types.View, size int) [][]*types.View {
	var batches [][]*types.View
	for start := 0; start < len(views); start += size {
		end := min(start+size, len(views))
		batches = append(batches, views[start:end])
	}
	return batches
}

func chunkRoles(roles []*types.Role, size int) [][]*types.Role {
	var batches [][]*types.Role
	for start := 0; start < len(roles); start += size {
		end := min(start+size, len(roles))
		batches = append(batches, roles[start:end])
	}
	return batches
}
