package types

import (
	"reflect"
	"strings"
	"time"
)

// EntityType discriminates the two migrated entity kinds.
type EntityType string

// Supported entity types.
const (
	EntityRole EntityType = "role"
	EntityView EntityType = "view"
)

// validEntityTypes is the set of recognized entity type values.
var validEntityTypes = map[EntityType]bool{
	EntityRole: true,
	EntityView: true,
}

// Valid reports whether the entity type is one of the recognized values.
func (e EntityType) Valid() bool {
	return validEntityTypes[e]
}

// NormalizeCode normalizes a natural key: trimmed and uppercased.
// Codes are compared and stored in this form in both stores.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Role is a target-shaped role document. Identity is the natural key Code;
// ID is the stable target identifier allocated by the identity mapper.
// Views holds target identifiers of the views the role grants access to.
type Role struct {
	ID        string    `bson:"_id" json:"id"`
	Code      string    `bson:"code" json:"code"`
	Name      string    `bson:"name" json:"name"`
	IsActive  bool      `bson:"isActive" json:"isActive"`
	Views     []string  `bson:"views" json:"views"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// View is a target-shaped view document. Parent is nil for root views.
// Children is derived from the parent pointers of sibling views, ordered by
// Order ascending with Code as tie-break; it is never authored independently.
// Roles holds target identifiers of the roles that reference this view.
type View struct {
	ID        string         `bson:"_id" json:"id"`
	Code      string         `bson:"code" json:"code"`
	Name      string         `bson:"name" json:"name"`
	Icon      string         `bson:"icon" json:"icon"`
	URL       string         `bson:"url" json:"url"`
	IsActive  bool           `bson:"isActive" json:"isActive"`
	Order     int            `bson:"order" json:"order"`
	Metadata  map[string]any `bson:"metadata" json:"metadata"`
	Parent    *string        `bson:"parent" json:"parent"`
	Children  []string       `bson:"children" json:"children"`
	Roles     []string       `bson:"roles" json:"roles"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// Equal reports whether two roles carry the same migrated content.
// Timestamps are excluded: they are write bookkeeping, not content.
func (r *Role) Equal(other *Role) bool {
	if r.ID != other.ID || r.Code != other.Code || r.Name != other.Name || r.IsActive != other.IsActive {
		return false
	}
	return stringSlicesEqual(r.Views, other.Views)
}

// Equal reports whether two views carry the same migrated content.
// Timestamps are excluded: they are write bookkeeping, not content.
func (v *View) Equal(other *View) bool {
	if v.ID != other.ID || v.Code != other.Code || v.Name != other.Name ||
		v.Icon != other.Icon || v.URL != other.URL ||
		v.IsActive != other.IsActive || v.Order != other.Order {
		return false
	}
	if (v.Parent == nil) != (other.Parent == nil) {
		return false
	}
	if v.Parent != nil && *v.Parent != *other.Parent {
		return false
	}
	if !stringSlicesEqual(v.Children, other.Children) || !stringSlicesEqual(v.Roles, other.Roles) {
		return false
	}
	return metadataEqual(v.Metadata, other.Metadata)
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// metadataEqual compares metadata maps. Values originate from JSON decoding,
// so deep equality over the decoded shapes is sufficient.
func metadataEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	return reflect.DeepEqual(a, b)
}
