package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run source pre-flight checks and report source row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := openSession(ctx, false)
		if err != nil {
			return err
		}
		defer sess.Close(ctx)

		details, err := sess.Pipeline.ValidateSource(ctx)
		if err != nil {
			return err
		}
		counts, err := sess.Pipeline.SourceCounts(ctx)
		if err != nil {
			return err
		}

		result := struct {
			Roles    int64    `json:"roles"`
			Views    int64    `json:"views"`
			Problems []string `json:"problems,omitempty"`
		}{counts.Roles, counts.Views, details}

		if err := printResult(result, func() {
			fmt.Printf("source: %d roles, %d views\n", counts.Roles, counts.Views)
			for _, d := range details {
				fmt.Println("problem:", d)
			}
		}); err != nil {
			return err
		}

		if len(details) > 0 {
			return errors.New("source pre-flight checks failed")
		}
		return nil
	},
}
