// Package store persists projects, sessions, messages, and tool uses in a
// SQLite database, plus a derived full-text index over message and tool
// content.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // register sqlite driver
)

const schemaVersion = "1"

// Store is the handle every component receives; there is no ambient
// connection singleton.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at the given path and applies the
// schema plus any additive migrations.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Additive migrations; failures on already-migrated databases are
	// expected ("duplicate column name") and ignored.
	for _, stmt := range migrationSQL {
		if _, err := db.Exec(stmt); err != nil && !strings.Contains(err.Error(), "duplicate column name") {
			_ = db.Close()
			return nil, fmt.Errorf("migrating schema: %w", err)
		}
	}

	if _, err := db.Exec(
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`,
		schemaVersion,
	); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("recording schema version: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
