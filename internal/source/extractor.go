// Package source implements the extractor: it reads role rows, view rows, and
// the role↔view association from the relational source store in a
// deterministic order. The connection is an opaque *sql.DB handed in by the
// caller; any driver whose schema matches the expected tables works.
package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

// Source table queries. Rows are read by ascending primary key so repeated
// extractions of a quiescent source produce identical snapshots.
const (
	queryRoles = `SELECT id, code, name, is_active, created_at, updated_at
FROM roles ORDER BY id ASC`

	queryViews = `SELECT id, code, name, icon, url, is_active, "order", metadata, parent_id, created_at, updated_at
FROM views ORDER BY id ASC`

	queryAssociations = `SELECT role_id, view_id
FROM role_views ORDER BY role_id ASC, view_id ASC`
)

// Extractor reads the source store. It performs raw-value decoding only;
// all interpretation belongs to the transformer.
type Extractor struct {
	db  *sql.DB
	log zerolog.Logger
}

// New creates an Extractor over the given source connection.
func New(db *sql.DB, log zerolog.Logger) *Extractor {
	return &Extractor{db: db, log: log}
}

// Extract reads the three source sequences. Connectivity or query failures
// are wrapped with types.ErrSourceRead and are fatal for the run; retry is
// the external scheduler's responsibility.
func (e *Extractor) Extract(ctx context.Context) (*types.RawSnapshot, error) {
	snap := &types.RawSnapshot{}

	roles, err := e.extractRoles(ctx)
	if err != nil {
		return nil, err
	}
	snap.Roles = roles

	views, err := e.extractViews(ctx)
	if err != nil {
		return nil, err
	}
	snap.Views = views

	assocs, err := e.extractAssociations(ctx)
	if err != nil {
		return nil, err
	}
	snap.Associations = assocs

	e.log.Info().
		Int("roles", len(snap.Roles)).
		Int("views", len(snap.Views)).
		Int("associations", len(snap.Associations)).
		Msg("extracted source snapshot")
	return snap, nil
}

func (e *Extractor) extractRoles(ctx context.Context) ([]types.RawRole, error) {
	rows, err := e.db.QueryContext(ctx, queryRoles)
	if err != nil {
		return nil, fmt.Errorf("querying roles: %w: %w", types.ErrSourceRead, err)
	}
	defer rows.Close()

	var roles []types.RawRole
	for rows.Next() {
		var r types.RawRole
		if err := rows.Scan(&r.ID, &r.Code, &r.Name, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning role row: %w: %w", types.ErrSourceRead, err)
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating role rows: %w: %w", types.ErrSourceRead, err)
	}
	return roles, nil
}

func (e *Extractor) extractViews(ctx context.Context) ([]types.RawView, error) {
	rows, err := e.db.QueryContext(ctx, queryViews)
	if err != nil {
		return nil, fmt.Errorf("querying views: %w: %w", types.ErrSourceRead, err)
	}
	defer rows.Close()

	var views []types.RawView
	for rows.Next() {
		var v types.RawView
		if err := rows.Scan(&v.ID, &v.Code, &v.Name, &v.Icon, &v.URL, &v.IsActive,
			&v.Order, &v.Metadata, &v.ParentID, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning view row: %w: %w", types.ErrSourceRead, err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating view rows: %w: %w", types.ErrSourceRead, err)
	}
	return views, nil
}

func (e *Extractor) extractAssociations(ctx context.Context) ([]types.RawAssociation, error) {
	rows, err := e.db.QueryContext(ctx, queryAssociations)
	if err != nil {
		return nil, fmt.Errorf("querying role_views: %w: %w", types.ErrSourceRead, err)
	}
	defer rows.Close()

	var assocs []types.RawAssociation
	for rows.Next() {
		var a types.RawAssociation
		if err := rows.Scan(&a.RoleID, &a.ViewID); err != nil {
			return nil, fmt.Errorf("scanning role_views row: %w: %w", types.ErrSourceRead, err)
		}
		assocs = append(assocs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating role_views rows: %w: %w", types.ErrSourceRead, err)
	}
	return assocs, nil
}

// Counts returns the source row counts per table, for count-parity validation.
func (e *Extractor) Counts(ctx context.Context) (roles, views int64, err error) {
	if err := e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM roles").Scan(&roles); err != nil {
		return 0, 0, fmt.Errorf("counting roles: %w: %w", types.ErrSourceRead, err)
	}
	if err := e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM views").Scan(&views); err != nil {
		return 0, 0, fmt.Errorf("counting views: %w: %w", types.ErrSourceRead, err)
	}
	return roles, views, nil
}

// ValidateSource runs pre-flight checks against the source schema: the three
// expected tables are readable and required fields are non-null. It returns
// one detail line per problem found and never mutates anything.
func (e *Extractor) ValidateSource(ctx context.Context) ([]string, error) {
	var details []string

	probes := []struct {
		table string
		query string
	}{
		{"roles", "SELECT id FROM roles LIMIT 1"},
		{"views", "SELECT id FROM views LIMIT 1"},
		{"role_views", "SELECT role_id FROM role_views LIMIT 1"},
	}
	for _, p := range probes {
		rows, err := e.db.QueryContext(ctx, p.query)
		if err != nil {
			details = append(details, fmt.Sprintf("table %s is not readable: %v", p.table, err))
			continue
		}
		rows.Close()
	}
	if len(details) > 0 {
		// Schema-level problems make the null checks below meaningless.
		return details, nil
	}

	nullChecks := []struct {
		label string
		query string
	}{
		{"roles with null code", "SELECT COUNT(*) FROM roles WHERE code IS NULL OR code = ''"},
		{"roles with null name", "SELECT COUNT(*) FROM roles WHERE name IS NULL"},
		{"views with null code", "SELECT COUNT(*) FROM views WHERE code IS NULL OR code = ''"},
		{"views with null name", "SELECT COUNT(*) FROM views WHERE name IS NULL"},
		{"role_views with dangling role", "SELECT COUNT(*) FROM role_views rv LEFT JOIN roles r ON r.id = rv.role_id WHERE r.id IS NULL"},
		{"role_views with dangling view", "SELECT COUNT(*) FROM role_views rv LEFT JOIN views v ON v.id = rv.view_id WHERE v.id IS NULL"},
	}
	for _, c := range nullChecks {
		var n int64
		if err := e.db.QueryRowContext(ctx, c.query).Scan(&n); err != nil {
			return nil, fmt.Errorf("pre-flight check %q: %w: %w", c.label, types.ErrSourceRead, err)
		}
		if n > 0 {
			details = append(details, fmt.Sprintf("%d %s", n, c.label))
		}
	}
	return details, nil
}
