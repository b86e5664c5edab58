// Package db provides SQLite database initialization and access for karibu.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// DefaultPath returns the default database path: ~/.karibu/karibu.db
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".karibu", "karibu.db"), nil
}

// Open opens (or creates) a SQLite database at the given path,
// enables WAL mode and foreign keys, and runs migrations.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
	}

	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := configure(database); err != nil {
		closeErr := database.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("%w (also failed to close: %v)", err, closeErr)
		}
		return nil, err
	}

	if err := migrate(database); err != nil {
		closeErr := database.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (also failed to close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return database, nil
}

// configure sets SQLite pragmas for WAL mode, foreign keys, and a busy
// timeout so concurrent sweep and request transactions queue instead of
// failing immediately.
func configure(database *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}

	for _, p := range pragmas {
		if _, err := database.Exec(p); err != nil {
			return fmt.Errorf("executing %s: %w", p, err)
		}
	}

	return nil
}

// UniqueViolation reports whether err is a SQLite unique-constraint
// violation and, if so, returns the "table.column" description from the
// driver message so repositories can map it to a domain conflict.
func UniqueViolation(err error) (string, bool) {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return "", false
	}
	if sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique &&
		sqliteErr.ExtendedCode != sqlite3.ErrConstraintPrimaryKey {
		return "", false
	}
	msg := sqliteErr.Error()
	const prefix = "UNIQUE constraint failed: "
	if i := strings.Index(msg, prefix); i >= 0 {
		return strings.TrimSpace(msg[i+len(prefix):]), true
	}
	return "", true
}
