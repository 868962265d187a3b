package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Extract and transform without writing to the target (dry run)",
	Long: `Transform extracts the source snapshot and runs the full mapping and
hierarchy construction, reporting what a load would write. The target store
is never written; the identifier mapping is still allocated and persisted so
a later load reuses the same identifiers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := openSession(ctx, false)
		if err != nil {
			return err
		}
		defer sess.Close(ctx)

		raw, err := sess.Pipeline.Extract(ctx)
		if err != nil {
			return err
		}
		snap, mapping, err := sess.Pipeline.Transform(ctx, raw)
		if err != nil {
			return err
		}

		result := struct {
			Roles   int                  `json:"roles"`
			Views   int                  `json:"views"`
			Mapping []types.MappingEntry `json:"mapping"`
		}{len(snap.Roles), len(snap.Views), mapping}

		return printResult(result, func() {
			fmt.Printf("transformed %d roles and %d views; %d mapping entries\n",
				len(snap.Roles), len(snap.Views), len(mapping))
			for _, v := range snap.Views {
				parent := "-"
				if v.Parent != nil {
					parent = *v.Parent
				}
				fmt.Printf("view %-24s id=%s parent=%s children=%d roles=%d\n",
					v.Code, v.ID, parent, len(v.Children), len(v.Roles))
			}
			for _, r := range snap.Roles {
				fmt.Printf("role %-24s id=%s views=%d\n", r.Code, r.ID, len(r.Views))
			}
		})
	},
}
