package target

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

// SourceCounts is the per-type row count of the source store at extract time,
// carried forward so the validator can check count parity without holding a
// source connection of its own.
type SourceCounts struct {
	Roles int64 `json:"roles"`
	Views int64 `json:"views"`
}

// Validator verifies the loaded target state. It only reads; it is
// independent of loader internals and runs entirely off the store interface.
type Validator struct {
	store Store
	log   zerolog.Logger
}

// NewValidator creates a Validator over the target store.
func NewValidator(store Store, log zerolog.Logger) *Validator {
	return &Validator{store: store, log: log}
}

// Validate runs every check and aggregates the results. The report's Success
// flag is the AND of all checks and is the authoritative success signal for
// the run. Validation mismatches are not errors: the report carries them.
// Only store read failures surface as an error.
func (v *Validator) Validate(ctx context.Context, source SourceCounts) (*types.Report, error) {
	report := types.NewReport()

	roles, err := v.store.AllRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading target roles: %w", err)
	}
	views, err := v.store.AllViews(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading target views: %w", err)
	}

	report.Add(v.checkCountParity(source, roles, views))
	report.Add(v.checkStructural(roles, views))
	report.Add(v.checkReferentialIntegrity(roles, views))
	report.Add(v.checkHierarchyIntegrity(views))

	v.log.Info().Bool("success", report.Success).Int("checks", len(report.Checks)).Msg("validation complete")
	return report, nil
}

// checkCountParity compares per-type document counts with the source.
func (v *Validator) checkCountParity(source SourceCounts, roles []*types.Role, views []*types.View) types.Check {
	c := types.Check{Name: types.CheckCountParity, Passed: true}
	if int64(len(roles)) != source.Roles {
		c.Passed = false
		c.Details = append(c.Details, fmt.Sprintf("roles: source has %d, target has %d", source.Roles, len(roles)))
	}
	if int64(len(views)) != source.Views {
		c.Passed = false
		c.Details = append(c.Details, fmt.Sprintf("views: source has %d, target has %d", source.Views, len(views)))
	}
	return c
}

// checkStructural verifies required fields and code normalization on every
// document, and code uniqueness per entity type.
func (v *Validator) checkStructural(roles []*types.Role, views []*types.View) types.Check {
	c := types.Check{Name: types.CheckStructural, Passed: true}

	seenRoleCodes := make(map[string]bool, len(roles))
	for _, r := range roles {
		if r.ID == "" || r.Code == "" || r.Name == "" {
			c.Details = append(c.Details, fmt.Sprintf("role %q: missing required field", r.Code))
		}
		if r.Code != strings.ToUpper(r.Code) {
			c.Details = append(c.Details, fmt.Sprintf("role %q: code is not uppercase-normalized", r.Code))
		}
		if seenRoleCodes[r.Code] {
			c.Details = append(c.Details, fmt.Sprintf("role code %q is duplicated", r.Code))
		}
		seenRoleCodes[r.Code] = true
	}

	seenViewCodes := make(map[string]bool, len(views))
	for _, view := range views {
		if view.ID == "" || view.Code == "" || view.Name == "" {
			c.Details = append(c.Details, fmt.Sprintf("view %q: missing required field", view.Code))
		}
		if view.Code != strings.ToUpper(view.Code) {
			c.Details = append(c.Details, fmt.Sprintf("view %q: code is not uppercase-normalized", view.Code))
		}
		if view.Metadata == nil || view.Children == nil || view.Roles == nil {
			c.Details = append(c.Details, fmt.Sprintf("view %q: nil collection field", view.Code))
		}
		if seenViewCodes[view.Code] {
			c.Details = append(c.Details, fmt.Sprintf("view code %q is duplicated", view.Code))
		}
		seenViewCodes[view.Code] = true
	}

	c.Passed = len(c.Details) == 0
	return c
}

// checkReferentialIntegrity verifies that every referenced id exists as a
// document of the expected type and that the role↔view symmetry invariant
// holds for every pair.
func (v *Validator) checkReferentialIntegrity(roles []*types.Role, views []*types.View) types.Check {
	c := types.Check{Name: types.CheckReferentialIntegrity, Passed: true}

	roleIDs := make(map[string]*types.Role, len(roles))
	for _, r := range roles {
		roleIDs[r.ID] = r
	}
	viewIDs := make(map[string]*types.View, len(views))
	for _, view := range views {
		viewIDs[view.ID] = view
	}

	for _, r := range roles {
		for _, viewID := range r.Views {
			view, ok := viewIDs[viewID]
			if !ok {
				c.Details = append(c.Details, fmt.Sprintf("role %q references missing view %s", r.Code, viewID))
				continue
			}
			if !containsID(view.Roles, r.ID) {
				c.Details = append(c.Details, fmt.Sprintf("asymmetry: role %q lists view %q but not vice versa", r.Code, view.Code))
			}
		}
	}

	for _, view := range views {
		for _, roleID := range view.Roles {
			r, ok := roleIDs[roleID]
			if !ok {
				c.Details = append(c.Details, fmt.Sprintf("view %q references missing role %s", view.Code, roleID))
				continue
			}
			if !containsID(r.Views, view.ID) {
				c.Details = append(c.Details, fmt.Sprintf("asymmetry: view %q lists role %q but not vice versa", view.Code, r.Code))
			}
		}
		if view.Parent != nil {
			if _, ok := viewIDs[*view.Parent]; !ok {
				c.Details = append(c.Details, fmt.Sprintf("view %q references missing parent %s", view.Code, *view.Parent))
			}
		}
		for _, childID := range view.Children {
			if _, ok := viewIDs[childID]; !ok {
				c.Details = append(c.Details, fmt.Sprintf("view %q references missing child %s", view.Code, childID))
			}
		}
	}

	c.Passed = len(c.Details) == 0
	return c
}

// checkHierarchyIntegrity verifies that the forest reconstructed from parent
// pointers matches the forest recorded in children pointers, and that no
// view's ancestor chain revisits itself.
func (v *Validator) checkHierarchyIntegrity(views []*types.View) types.Check {
	c := types.Check{Name: types.CheckHierarchyIntegrity, Passed: true}

	byID := make(map[string]*types.View, len(views))
	for _, view := range views {
		byID[view.ID] = view
	}

	// Forest from parent pointers.
	childrenFromParents := make(map[string]map[string]bool)
	for _, view := range views {
		if view.Parent == nil {
			continue
		}
		set, ok := childrenFromParents[*view.Parent]
		if !ok {
			set = make(map[string]bool)
			childrenFromParents[*view.Parent] = set
		}
		set[view.ID] = true
	}

	// Compare with the recorded children pointers.
	for _, view := range views {
		recorded := make(map[string]bool, len(view.Children))
		for _, childID := range view.Children {
			recorded[childID] = true
		}
		derived := childrenFromParents[view.ID]
		for childID := range derived {
			if !recorded[childID] {
				c.Details = append(c.Details, fmt.Sprintf("view %q: child %s present by parent pointer, absent from children", view.Code, childID))
			}
		}
		for childID := range recorded {
			if !derived[childID] {
				c.Details = append(c.Details, fmt.Sprintf("view %q: child %s recorded in children, but its parent pointer disagrees", view.Code, childID))
			}
		}
	}

	// Acyclicity over target parent pointers.
	for _, view := range views {
		seen := map[string]bool{view.ID: true}
		current := view
		for current.Parent != nil {
			parent, ok := byID[*current.Parent]
			if !ok {
				break // reported by referential integrity
			}
			if seen[parent.ID] {
				c.Details = append(c.Details, fmt.Sprintf("view %q: ancestor chain revisits itself", view.Code))
				break
			}
			seen[parent.ID] = true
			current = parent
		}
	}

	c.Passed = len(c.Details) == 0
	return c
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
