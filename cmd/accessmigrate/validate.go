package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the target store against the source",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sess, err := openSession(ctx, true)
		if err != nil {
			return err
		}
		defer sess.Close(ctx)

		counts, err := sess.Pipeline.SourceCounts(ctx)
		if err != nil {
			return err
		}
		report, err := sess.Pipeline.Validate(ctx, counts)
		if err != nil {
			return err
		}

		if err := printResult(report, func() { printReportPlain(report) }); err != nil {
			return err
		}

		if !report.Success {
			return errors.New("validation failed")
		}
		return nil
	},
}

// printReportPlain renders a validation report as one line per check plus
// its detail lines.
func printReportPlain(report *types.Report) {
	for _, c := range report.Checks {
		status := "pass"
		if !c.Passed {
			status = "FAIL"
		}
		fmt.Printf("%-24s %s\n", c.Name, status)
		for _, d := range c.Details {
			fmt.Println("  -", d)
		}
	}
}
