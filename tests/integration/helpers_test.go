// Package integration provides shared helpers for CLI integration tests.
package integration

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

var (
	migrateBin string
	buildErr   error
)

// SetMigrateBin records the path of the binary built by TestMain.
func SetMigrateBin(path string) { migrateBin = path }

// SetBuildErr records a build failure so every test can report it.
func SetBuildErr(err error) { buildErr = err }

// BuildError wraps a go build failure with its output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build failed: %v\n%s", e.Err, e.Output)
}

// FindProjectRoot walks up from the working directory until it finds go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// CmdResult is the captured outcome of one CLI invocation.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// TestEnv is an isolated environment for one test: its own config directory,
// data directory, and source database.
type TestEnv struct {
	t         *testing.T
	ConfigDir string
	DataDir   string
	SourceDSN string
}

// NewTestEnv creates an isolated environment with a seeded source database.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if buildErr != nil {
		t.Fatal(buildErr)
	}

	base := t.TempDir()
	env := &TestEnv{
		t:         t,
		ConfigDir: filepath.Join(base, "config"),
		DataDir:   filepath.Join(base, "data"),
		SourceDSN: filepath.Join(base, "source.db"),
	}
	env.seedSource()
	return env
}

// seedSource creates the relational source schema with a small role/view
// forest: two roles, three views, one parent relationship.
func (e *TestEnv) seedSource() {
	e.t.Helper()

	db, err := sql.Open("sqlite", e.SourceDSN)
	if err != nil {
		e.t.Fatalf("open source db: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE roles (
			id INTEGER PRIMARY KEY, code TEXT, name TEXT,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT, updated_at TEXT)`,
		`CREATE TABLE views (
			id INTEGER PRIMARY KEY, code TEXT, name TEXT, icon TEXT, url TEXT,
			is_active INTEGER NOT NULL DEFAULT 1, "order" INTEGER NOT NULL DEFAULT 0,
			metadata TEXT, parent_id INTEGER,
			created_at TEXT, updated_at TEXT)`,
		`CREATE TABLE role_views (
			role_id INTEGER NOT NULL, view_id INTEGER NOT NULL,
			PRIMARY KEY (role_id, view_id))`,
		`INSERT INTO roles (id, code, name) VALUES
			(1, 'admin', 'Administrator'), (2, 'operator', 'Operator')`,
		`INSERT INTO views (id, code, name, "order", parent_id) VALUES
			(1, 'settings', 'Settings', 2, NULL),
			(2, 'users', 'Users', 1, 1),
			(3, 'dashboard', 'Dashboard', 1, NULL)`,
		`INSERT INTO role_views (role_id, view_id) VALUES (1, 1), (1, 2), (1, 3), (2, 3)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			e.t.Fatalf("seed source db: %v", err)
		}
	}
}

// CorruptSource adds rows that should fail the pre-flight checks.
func (e *TestEnv) CorruptSource() {
	e.t.Helper()

	db, err := sql.Open("sqlite", e.SourceDSN)
	if err != nil {
		e.t.Fatalf("open source db: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`INSERT INTO roles (id, code, name) VALUES (3, NULL, 'Broken')`); err != nil {
		e.t.Fatalf("corrupt source db: %v", err)
	}
}

// Run invokes the CLI with the environment's directories and source wired in.
func (e *TestEnv) Run(args ...string) CmdResult {
	e.t.Helper()

	// The target settings satisfy configuration validation; the commands
	// under test never dial the target store.
	full := append([]string{
		"--config-dir", e.ConfigDir,
		"--data-dir", e.DataDir,
		"--source-dsn", e.SourceDSN,
		"--target-uri", "mongodb://localhost:27017",
		"--target-db", "accessmigrate-test",
	}, args...)

	cmd := exec.Command(migrateBin, full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CmdResult{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		e.t.Fatalf("run %v: %v", args, err)
	}
	return result
}

// MustRun invokes the CLI and fails the test on a nonzero exit.
func (e *TestEnv) MustRun(args ...string) CmdResult {
	e.t.Helper()

	result := e.Run(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("command %v exited %d\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}
