// Package main provides the accessmigrate CLI: the Extract → Transform →
// Load → Validate pipeline that migrates roles and views from a relational
// source store into a document store.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the CLI exit code: configuration problems are
// user errors, everything else is a pipeline failure.
func exitCode(err error) int {
	for _, cfgErr := range []error{
		types.ErrSourceDSNEmpty,
		types.ErrTargetURIEmpty,
		types.ErrTargetDatabaseEmpty,
		types.ErrBatchSizeInvalid,
		types.ErrTimeoutInvalid,
	} {
		if errors.Is(err, cfgErr) {
			return exitUserError
		}
	}
	return exitSysError
}
