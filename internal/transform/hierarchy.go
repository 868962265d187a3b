package transform

import (
	"sort"

	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

// checkHierarchy validates the raw view tree before any mapping happens.
// Every non-null parent_id must name an existing view, and following parent
// pointers from any view must reach a root without revisiting a view.
func checkHierarchy(views []types.RawView) error {
	byID := make(map[int64]types.RawView, len(views))
	for _, v := range views {
		byID[v.ID] = v
	}

	for _, v := range views {
		if !v.ParentID.Valid {
			continue
		}
		seen := map[int64]bool{v.ID: true}
		path := []int64{v.ID}
		current := v
		for current.ParentID.Valid {
			parentID := current.ParentID.Int64
			parent, ok := byID[parentID]
			if !ok {
				return &types.MalformedRowError{
					EntityType: types.EntityView,
					SourceID:   current.ID,
					Field:      "parent_id",
					Reason:     "references a view that does not exist",
				}
			}
			if seen[parentID] {
				return &types.HierarchyCycleError{
					SourceID: v.ID,
					Code:     types.NormalizeCode(v.Code.String),
					Path:     append(path, parentID),
				}
			}
			seen[parentID] = true
			path = append(path, parentID)
			current = parent
		}
	}
	return nil
}

// assembleChildren derives every view's Children from the resolved parent
// pointers: all views sharing a parent, ordered by Order ascending with Code
// as tie-break. Children is never authored independently of Parent.
func assembleChildren(views []*types.View) {
	byParent := make(map[string][]*types.View)
	for _, v := range views {
		if v.Parent == nil {
			continue
		}
		byParent[*v.Parent] = append(byParent[*v.Parent], v)
	}

	index := make(map[string]*types.View, len(views))
	for _, v := range views {
		index[v.ID] = v
	}

	for parentID, children := range byParent {
		parent, ok := index[parentID]
		if !ok {
			continue
		}
		sort.Slice(children, func(i, j int) bool {
			if children[i].Order != children[j].Order {
				return children[i].Order < children[j].Order
			}
			return children[i].Code < children[j].Code
		})
		ids := make([]string, len(children))
		for i, c := range children {
			ids[i] = c.ID
		}
		parent.Children = ids
	}
}
