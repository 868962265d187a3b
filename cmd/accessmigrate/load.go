package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Extract, transform, and load into the target store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := openSession(ctx, true)
		if err != nil {
			return err
		}
		defer sess.Close(ctx)

		raw, err := sess.Pipeline.Extract(ctx)
		if err != nil {
			return err
		}
		snap, _, err := sess.Pipeline.Transform(ctx, raw)
		if err != nil {
			return err
		}
		stats, loadErr := sess.Pipeline.Load(ctx, snap)

		if stats != nil {
			if err := printResult(stats, func() {
				fmt.Printf("roles: %d created, %d updated, %d unchanged, %d failed\n",
					stats.Roles.Created, stats.Roles.Updated, stats.Roles.Unchanged, stats.Roles.Failed)
				fmt.Printf("views: %d created, %d updated, %d unchanged, %d failed\n",
					stats.Views.Created, stats.Views.Updated, stats.Views.Unchanged, stats.Views.Failed)
				for _, c := range stats.Conflicts {
					fmt.Println("conflict:", c.Error())
				}
			}); err != nil {
				return err
			}
		}

		if loadErr != nil {
			return loadErr
		}
		if stats != nil && !stats.Clean() {
			return errors.New("load completed with write conflicts")
		}
		return nil
	},
}
