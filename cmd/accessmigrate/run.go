package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full migration pipeline (extract, transform, load, validate)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := openSession(ctx, true)
		if err != nil {
			return err
		}
		defer sess.Close(ctx)

		result, runErr := sess.Pipeline.Run(ctx)

		if err := printResult(result, func() {
			for _, s := range result.Stages {
				line := fmt.Sprintf("%-10s %s", s.Stage, s.Status)
				if s.Error != "" {
					line += "  (" + s.Error + ")"
				}
				fmt.Println(line)
			}
			if result.Stats != nil {
				fmt.Printf("roles: %d created, %d updated, %d unchanged\n",
					result.Stats.Roles.Created, result.Stats.Roles.Updated, result.Stats.Roles.Unchanged)
				fmt.Printf("views: %d created, %d updated, %d unchanged\n",
					result.Stats.Views.Created, result.Stats.Views.Updated, result.Stats.Views.Unchanged)
			}
			if result.Report != nil {
				printReportPlain(result.Report)
			}
			if result.Success {
				fmt.Println("migration succeeded")
			} else {
				fmt.Println("migration failed")
			}
		}); err != nil {
			return err
		}

		if runErr != nil {
			return runErr
		}
		if !result.Success {
			return errors.New("migration completed with failures")
		}
		return nil
	},
}
