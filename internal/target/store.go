// Package target implements the document-store side of the migration: the
// Store abstraction over the target database, the two-phase idempotent
// Loader, and the read-only Validator.
package target

import (
	"context"

	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

// Store is the document-store surface the loader and validator need. The
// target database does not enforce referential existence at write time, so
// documents may be written carrying references to ids not yet written. All
// operations observe the caller-supplied context for timeout and
// cancellation.
type Store interface {
	// FindRoleByCode returns the role document with the given normalized
	// code, or types.ErrNotFound.
	FindRoleByCode(ctx context.Context, code string) (*types.Role, error)
	// FindViewByCode returns the view document with the given normalized
	// code, or types.ErrNotFound.
	FindViewByCode(ctx context.Context, code string) (*types.View, error)

	// UpsertRole writes the full document keyed by code.
	UpsertRole(ctx context.Context, role *types.Role) error
	// UpsertView writes the full document keyed by code.
	UpsertView(ctx context.Context, view *types.View) error

	// CountRoles and CountViews return document counts per collection.
	CountRoles(ctx context.Context) (int64, error)
	CountViews(ctx context.Context) (int64, error)

	// AllRoles and AllViews return every document, for validation.
	AllRoles(ctx context.Context) ([]*types.Role, error)
	AllViews(ctx context.Context) ([]*types.View, error)

	// EnsureIndexes creates the unique code index and the secondary lookup
	// indexes. Idempotent.
	EnsureIndexes(ctx context.Context) error

	// Close releases client resources. Idempotent.
	Close(ctx context.Context) error
}
