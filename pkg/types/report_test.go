package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportSuccessIsANDOfChecks(t *testing.T) {
	r := NewReport()
	assert.True(t, r.Success, "empty report starts successful")

	r.Add(Check{Name: CheckCountParity, Passed: true})
	assert.True(t, r.Success)

	r.Add(Check{Name: CheckStructural, Passed: false, Details: []string{"role \"X\": missing required field"}})
	assert.False(t, r.Success)

	// A later passing check must not flip it back.
	r.Add(Check{Name: CheckHierarchyIntegrity, Passed: true})
	assert.False(t, r.Success)
	assert.Len(t, r.Checks, 3)
}

func TestLoadStatsClean(t *testing.T) {
	stats := &LoadStats{}
	assert.True(t, stats.Clean())

	stats.Roles.Created = 3
	stats.Views.Unchanged = 2
	assert.True(t, stats.Clean())

	stats.Conflicts = append(stats.Conflicts, &WriteConflictError{
		EntityType: EntityRole, Code: "ADMIN", WantID: "a", HaveID: "b",
	})
	assert.False(t, stats.Clean())

	stats = &LoadStats{}
	stats.Views.Failed = 1
	assert.False(t, stats.Clean())
}

func TestEntityStatsTotal(t *testing.T) {
	s := EntityStats{Created: 1, Updated: 2, Unchanged: 3, Failed: 4}
	assert.Equal(t, 10, s.Total())
}

func TestErrorMessagesIdentifyTheOffendingEntity(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "mapping conflict",
			err: &MappingConflictError{
				EntityType: EntityView, Code: "DUP", SourceID: 7, ExistingID: 3, TargetID: "t-1",
			},
			want: []string{"view", "DUP", "3", "7", "t-1"},
		},
		{
			name: "hierarchy cycle",
			err:  &HierarchyCycleError{SourceID: 4, Code: "LOOP", Path: []int64{4, 5, 4}},
			want: []string{"LOOP", "4"},
		},
		{
			name: "malformed row",
			err:  &MalformedRowError{EntityType: EntityRole, SourceID: 12, Field: "code", Reason: "required field is null or empty"},
			want: []string{"role", "12", "code"},
		},
		{
			name: "write conflict",
			err:  &WriteConflictError{EntityType: EntityView, Code: "HOME", WantID: "new", HaveID: "old"},
			want: []string{"view", "HOME", "new", "old"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, fragment := range tt.want {
				assert.Contains(t, msg, fragment)
			}
		})
	}
}
