// Root command and global flags for the accessmigrate CLI.
package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/accessmigrate/internal/paths"
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagSourceDSN string
	flagTargetURI string
	flagTargetDB  string
	flagBatchSize int
	flagLogLevel  string
	flagJSON      bool
)

var rootCmd = &cobra.Command{
	Use:   "accessmigrate",
	Short: "Migrate roles and views from a relational store to a document store",
	Long: `accessmigrate runs an Extract → Transform → Load → Validate pipeline that
moves a hierarchical access-control model (roles, views, and their
associations) from a relational source store into a document store.

Target identifiers are derived from each entity's natural code, so re-running
a migration against an unchanged source is a no-op. The identifier mapping is
persisted to the data directory and reused when a run is resumed.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&flagDataDir, "data-dir", "", "data directory for the mapping database (default: $(CWD)/.accessmigrate-data)")
	pf.StringVar(&flagSourceDSN, "source-dsn", "", "source store DSN (overrides config)")
	pf.StringVar(&flagTargetURI, "target-uri", "", "target store URI (overrides config)")
	pf.StringVar(&flagTargetDB, "target-db", "", "target database name (overrides config)")
	pf.IntVar(&flagBatchSize, "batch-size", 0, "documents per load batch (overrides config)")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides config)")
	pf.BoolVar(&flagJSON, "json", false, "output results as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(validateCmd)
}

// resolveConfigDir returns the configuration directory following the
// precedence: --config-dir flag > ACCESSMIGRATE_CONFIG_DIR env > platform default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}

// resolveDataDir returns the data directory following the precedence:
// --data-dir flag > config data_dir > ACCESSMIGRATE_DATA_DIR env > default.
func resolveDataDir(configValue string) (string, error) {
	return paths.ResolveDataDir(flagDataDir, configValue)
}
