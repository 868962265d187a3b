package types

import (
	"errors"
	"time"
)

// Config holds the connection and tuning parameters accepted by the pipeline.
// Connection values are opaque to the core: SourceDSN is handed to the SQL
// driver and TargetURI to the document-store client without interpretation.
type Config struct {
	SourceDSN      string `json:"source_dsn" yaml:"source_dsn"`
	TargetURI      string `json:"target_uri" yaml:"target_uri"`
	TargetDatabase string `json:"target_database" yaml:"target_database"`
	MappingPath    string `json:"mapping_path" yaml:"mapping_path"`
	BatchSize      int    `json:"batch_size" yaml:"batch_size"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	LogLevel       string `json:"log_level" yaml:"log_level"`
}

// Defaults applied by Validate when a field is zero.
const (
	DefaultBatchSize      = 500
	DefaultTimeoutSeconds = 30
	DefaultLogLevel       = "info"
)

// Config validation errors.
var (
	ErrSourceDSNEmpty      = errors.New("source DSN must not be empty")
	ErrTargetURIEmpty      = errors.New("target URI must not be empty")
	ErrTargetDatabaseEmpty = errors.New("target database must not be empty")
	ErrBatchSizeInvalid    = errors.New("batch size must be positive")
	ErrTimeoutInvalid      = errors.New("timeout must be positive")
)

// Validate checks that the Config is well-formed and fills in defaults for
// zero-valued tuning parameters. It returns a sentinel error from this
// package on failure.
func (c *Config) Validate() error {
	if c.SourceDSN == "" {
		return ErrSourceDSNEmpty
	}
	if c.TargetURI == "" {
		return ErrTargetURIEmpty
	}
	if c.TargetDatabase == "" {
		return ErrTargetDatabaseEmpty
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchSize < 0 {
		return ErrBatchSizeInvalid
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.TimeoutSeconds < 0 {
		return ErrTimeoutInvalid
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	return nil
}

// Timeout returns the per-operation store timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
