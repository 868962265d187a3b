package types

import "database/sql"

// RawRole is a role row as read from the source store, decoded but not
// transformed. Nullable columns keep their driver null wrappers so the
// transformer can distinguish absent from empty.
type RawRole struct {
	ID        int64
	Code      sql.NullString
	Name      sql.NullString
	IsActive  bool
	CreatedAt sql.NullString
	UpdatedAt sql.NullString
}

// RawView is a view row as read from the source store.
type RawView struct {
	ID        int64
	Code      sql.NullString
	Name      sql.NullString
	Icon      sql.NullString
	URL       sql.NullString
	IsActive  bool
	Order     int64
	Metadata  sql.NullString
	ParentID  sql.NullInt64
	CreatedAt sql.NullString
	UpdatedAt sql.NullString
}

// RawAssociation is a row of the role↔view association table.
type RawAssociation struct {
	RoleID int64
	ViewID int64
}

// RawSnapshot is the complete extractor output: the three source sequences,
// each ordered by ascending primary key.
type RawSnapshot struct {
	Roles        []RawRole
	Views        []RawView
	Associations []RawAssociation
}

// MappedSnapshot is the complete transformer output: target-shaped documents
// with every cross-reference resolved to a target identifier. Both slices are
// ordered by code for reproducible loading.
type MappedSnapshot struct {
	Roles []*Role
	Views []*View
}
