// Package transform converts raw source rows into target-shaped documents.
// It resolves every identifier reference through the identity mapper, builds
// the view hierarchy, and populates the bidirectional role↔view association
// from the single association table so the symmetry invariant holds by
// construction. The transformer never writes to the target store.
package transform

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/accessmigrate/internal/mapper"
	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

// Transformer builds a MappedSnapshot from a RawSnapshot.
type Transformer struct {
	mapper *mapper.Mapper
	log    zerolog.Logger

	// now is stubbed in tests for deterministic timestamp fallbacks.
	now func() time.Time
}

// New creates a Transformer that allocates identifiers through m.
func New(m *mapper.Mapper, log zerolog.Logger) *Transformer {
	return &Transformer{mapper: m, log: log, now: time.Now}
}

// Transform maps the snapshot. The order is fixed: views are mapped first
// (the parent self-reference needs only view mappings), then roles, then the
// association rows are resolved into both directions, then every view's
// children are assembled from the resolved parent pointers. The mapping is
// total before any reference is emitted.
//
// Errors are fatal and abort the run: *types.HierarchyCycleError,
// *types.MalformedRowError, and *types.MappingConflictError propagated from
// the mapper. On success the completed mapping snapshot is returned alongside
// the documents.
func (t *Transformer) Transform(ctx context.Context, raw *types.RawSnapshot) (*types.MappedSnapshot, []types.MappingEntry, error) {
	if err := checkHierarchy(raw.Views); err != nil {
		return nil, nil, err
	}

	views, viewIndex, err := t.mapViews(ctx, raw.Views)
	if err != nil {
		return nil, nil, err
	}

	roles, roleIndex, err := t.mapRoles(ctx, raw.Roles)
	if err != nil {
		return nil, nil, err
	}

	if err := t.resolveAssociations(ctx, raw.Associations, roleIndex, viewIndex); err != nil {
		return nil, nil, err
	}

	assembleChildren(views)

	sort.Slice(views, func(i, j int) bool { return views[i].Code < views[j].Code })
	sort.Slice(roles, func(i, j int) bool { return roles[i].Code < roles[j].Code })

	t.log.Info().
		Int("roles", len(roles)).
		Int("views", len(views)).
		Msg("transformed snapshot")

	return &types.MappedSnapshot{Roles: roles, Views: views}, t.mapper.Snapshot(), nil
}

// mapViews allocates identifiers for every view and builds the documents.
// The returned index maps source view id to document.
func (t *Transformer) mapViews(ctx context.Context, raws []types.RawView) ([]*types.View, map[int64]*types.View, error) {
	// First pass: allocate every view identifier so parent references can be
	// resolved in the second pass regardless of row order.
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if !raw.Code.Valid || types.NormalizeCode(raw.Code.String) == "" {
			return nil, nil, &types.MalformedRowError{
				EntityType: types.EntityView, SourceID: raw.ID,
				Field: "code", Reason: "required field is null or empty",
			}
		}
		if !raw.Name.Valid {
			return nil, nil, &types.MalformedRowError{
				EntityType: types.EntityView, SourceID: raw.ID,
				Field: "name", Reason: "required field is null",
			}
		}
		if _, err := t.mapper.Resolve(types.EntityView, raw.ID, raw.Code.String); err != nil {
			return nil, nil, err
		}
	}

	views := make([]*types.View, 0, len(raws))
	index := make(map[int64]*types.View, len(raws))
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		id, _ := t.mapper.Lookup(types.EntityView, raw.ID)

		var parent *string
		if raw.ParentID.Valid {
			parentID, ok := t.mapper.Lookup(types.EntityView, raw.ParentID.Int64)
			if !ok {
				// Unreachable after checkHierarchy, kept as a hard stop in
				// case the snapshot was assembled by hand.
				return nil, nil, &types.MalformedRowError{
					EntityType: types.EntityView, SourceID: raw.ID,
					Field: "parent_id", Reason: "references a view that does not exist",
				}
			}
			parent = &parentID
		}

		v := &types.View{
			ID:        id,
			Code:      types.NormalizeCode(raw.Code.String),
			Name:      raw.Name.String,
			Icon:      raw.Icon.String,
			URL:       raw.URL.String,
			IsActive:  raw.IsActive,
			Order:     int(raw.Order),
			Metadata:  t.decodeMetadata(raw.ID, raw.Metadata),
			Parent:    parent,
			Children:  []string{},
			Roles:     []string{},
			CreatedAt: t.parseTime(raw.CreatedAt),
			UpdatedAt: t.parseTime(raw.UpdatedAt),
		}
		views = append(views, v)
		index[raw.ID] = v
	}
	return views, index, nil
}

// mapRoles allocates identifiers for every role and builds the documents.
func (t *Transformer) mapRoles(ctx context.Context, raws []types.RawRole) ([]*types.Role, map[int64]*types.Role, error) {
	roles := make([]*types.Role, 0, len(raws))
	index := make(map[int64]*types.Role, len(raws))
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if !raw.Code.Valid || types.NormalizeCode(raw.Code.String) == "" {
			return nil, nil, &types.MalformedRowError{
				EntityType: types.EntityRole, SourceID: raw.ID,
				Field: "code", Reason: "required field is null or empty",
			}
		}
		if !raw.Name.Valid {
			return nil, nil, &types.MalformedRowError{
				EntityType: types.EntityRole, SourceID: raw.ID,
				Field: "name", Reason: "required field is null",
			}
		}
		id, err := t.mapper.Resolve(types.EntityRole, raw.ID, raw.Code.String)
		if err != nil {
			return nil, nil, err
		}

		r := &types.Role{
			ID:        id,
			Code:      types.NormalizeCode(raw.Code.String),
			Name:      raw.Name.String,
			IsActive:  raw.IsActive,
			Views:     []string{},
			CreatedAt: t.parseTime(raw.CreatedAt),
			UpdatedAt: t.parseTime(raw.UpdatedAt),
		}
		roles = append(roles, r)
		index[raw.ID] = r
	}
	return roles, index, nil
}

// resolveAssociations appends each association row to both role.Views and
// view.Roles. Both directions are driven by the same row, which is what
// guarantees the symmetry invariant. Duplicate rows collapse.
func (t *Transformer) resolveAssociations(ctx context.Context, assocs []types.RawAssociation,
	roles map[int64]*types.Role, views map[int64]*types.View) error {

	for _, a := range assocs {
		if err := ctx.Err(); err != nil {
			return err
		}
		role, ok := roles[a.RoleID]
		if !ok {
			return &types.MalformedRowError{
				EntityType: types.EntityRole, SourceID: a.RoleID,
				Field: "role_id", Reason: "association references a role that does not exist",
			}
		}
		view, ok := views[a.ViewID]
		if !ok {
			return &types.MalformedRowError{
				EntityType: types.EntityView, SourceID: a.ViewID,
				Field: "view_id", Reason: "association references a view that does not exist",
			}
		}
		role.Views = appendUnique(role.Views, view.ID)
		view.Roles = appendUnique(view.Roles, role.ID)
	}
	return nil
}

// decodeMetadata decodes the opaque metadata JSON column. Invalid metadata is
// not fatal: the field is optional, so it degrades to an empty map with a
// warning, matching the tolerance of the system being replaced.
func (t *Transformer) decodeMetadata(sourceID int64, raw sql.NullString) map[string]any {
	if !raw.Valid || raw.String == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw.String), &m); err != nil {
		t.log.Warn().Int64("view", sourceID).Err(err).Msg("discarding invalid metadata")
		return map[string]any{}
	}
	if m == nil {
		return map[string]any{}
	}
	return m
}

// sourceTimeLayouts are the timestamp forms the source store is known to emit.
var sourceTimeLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// parseTime decodes a source timestamp, falling back to the current time for
// null or unparseable values.
func (t *Transformer) parseTime(raw sql.NullString) time.Time {
	if raw.Valid {
		for _, layout := range sourceTimeLayouts {
			if parsed, err := time.Parse(layout, raw.String); err == nil {
				return parsed.UTC()
			}
		}
		t.log.Warn().Str("value", raw.String).Msg("unparseable source timestamp, using current time")
	}
	return t.now().UTC()
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
