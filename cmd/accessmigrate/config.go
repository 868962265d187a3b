// Config loading for the accessmigrate CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/accessmigrate/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "ACCESSMIGRATE"

	// Config keys.
	cfgKeySourceDSN = "source_dsn"
	cfgKeyTargetURI = "target_uri"
	cfgKeyTargetDB  = "target_database"
	cfgKeyDataDir   = "data_dir"
	cfgKeyBatchSize = "batch_size"
	cfgKeyTimeout   = "timeout_seconds"
	cfgKeyLogLevel  = "log_level"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# accessmigrate configuration

# Source relational store DSN (also: --source-dsn, ACCESSMIGRATE_SOURCE_DSN)
# source_dsn: /var/lib/monolith/access.db

# Target document store (also: --target-uri / --target-db)
# target_uri: mongodb://localhost:27017
# target_database: ms-users

# Data directory for the persistent identifier mapping (optional)
# data_dir:

# Tuning
batch_size: 500
timeout_seconds: 30
log_level: info
`

// loadConfig reads config.yaml from the resolved config directory using
// Viper, creating the directory and a default config.yaml on first run.
// A missing config.yaml is not an error: flags and environment can carry
// the full configuration.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBatchSize, types.DefaultBatchSize)
	v.SetDefault(cfgKeyTimeout, types.DefaultTimeoutSeconds)
	v.SetDefault(cfgKeyLogLevel, types.DefaultLogLevel)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if none exists.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// buildConfig assembles the pipeline configuration with flag > config file >
// env > default precedence and validates it.
func buildConfig() (*types.Config, error) {
	configDir, err := resolveConfigDir()
	if err != nil {
		return nil, err
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return nil, err
	}

	cfg := &types.Config{
		SourceDSN:      firstNonEmpty(flagSourceDSN, v.GetString(cfgKeySourceDSN)),
		TargetURI:      firstNonEmpty(flagTargetURI, v.GetString(cfgKeyTargetURI)),
		TargetDatabase: firstNonEmpty(flagTargetDB, v.GetString(cfgKeyTargetDB)),
		BatchSize:      flagBatchSize,
		TimeoutSeconds: v.GetInt(cfgKeyTimeout),
		LogLevel:       firstNonEmpty(flagLogLevel, v.GetString(cfgKeyLogLevel)),
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = v.GetInt(cfgKeyBatchSize)
	}

	dataDir, err := resolveDataDir(v.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	cfg.MappingPath = filepath.Join(dataDir, "mapping.db")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
