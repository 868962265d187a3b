package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "already normalized", in: "ADMIN_PANEL", want: "ADMIN_PANEL"},
		{name: "lowercase", in: "admin_panel", want: "ADMIN_PANEL"},
		{name: "mixed case with spaces", in: "  User_List ", want: "USER_LIST"},
		{name: "empty", in: "", want: ""},
		{name: "whitespace only", in: "   ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCode(tt.in))
		})
	}
}

func TestEntityTypeValid(t *testing.T) {
	assert.True(t, EntityRole.Valid())
	assert.True(t, EntityView.Valid())
	assert.False(t, EntityType("user").Valid())
	assert.False(t, EntityType("").Valid())
}

func TestRoleEqualIgnoresTimestamps(t *testing.T) {
	base := Role{
		ID: "r1", Code: "SUPERADMIN", Name: "Super admin", IsActive: true,
		Views:     []string{"v1", "v2"},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	other := base
	other.Views = []string{"v1", "v2"}
	other.CreatedAt = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	other.UpdatedAt = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, base.Equal(&other), "timestamp differences must not affect equality")

	changed := base
	changed.Views = []string{"v2", "v1"}
	assert.False(t, base.Equal(&changed), "view order is part of the content")

	inactive := base
	inactive.IsActive = false
	assert.False(t, base.Equal(&inactive))
}

func TestViewEqual(t *testing.T) {
	parent := "p1"
	base := View{
		ID: "v1", Code: "USER_LIST", Name: "Users", Icon: "people", URL: "/users",
		IsActive: true, Order: 2,
		Metadata: map[string]any{"badge": "new"},
		Parent:   &parent,
		Children: []string{},
		Roles:    []string{"r1"},
	}

	same := base
	sameParent := "p1"
	same.Parent = &sameParent
	same.Metadata = map[string]any{"badge": "new"}
	same.Roles = []string{"r1"}
	assert.True(t, base.Equal(&same))

	tests := []struct {
		name   string
		mutate func(v *View)
	}{
		{name: "different parent", mutate: func(v *View) { p := "p2"; v.Parent = &p }},
		{name: "nil parent", mutate: func(v *View) { v.Parent = nil }},
		{name: "different order", mutate: func(v *View) { v.Order = 3 }},
		{name: "different metadata", mutate: func(v *View) { v.Metadata = map[string]any{"badge": "old"} }},
		{name: "extra child", mutate: func(v *View) { v.Children = []string{"c1"} }},
		{name: "different roles", mutate: func(v *View) { v.Roles = []string{"r2"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mutated := base
			p := *base.Parent
			mutated.Parent = &p
			tt.mutate(&mutated)
			assert.False(t, base.Equal(&mutated))
		})
	}
}
