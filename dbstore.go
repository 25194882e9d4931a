package mibc

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// DBStore persists compiled artifacts in a SQL database, acting as both
// a Writer and a Searcher: stored timestamps answer freshness checks
// without touching the filesystem. The schema targets SQLite but only
// uses database/sql, so the caller picks the driver.
type DBStore struct {
	db *sql.DB
}

// NewDBStore wraps an open database handle, creating the artifact table
// if it does not exist yet.
func NewDBStore(db *sql.DB) (*DBStore, error) {
	const schema = `
CREATE TABLE IF NOT EXISTS compiled_modules (
	name     TEXT PRIMARY KEY,
	artifact BLOB NOT NULL,
	updated  INTEGER NOT NULL
)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating artifact table: %w", err)
	}
	return &DBStore{db: db}, nil
}

func (s *DBStore) String() string { return "DBStore" }

// Store upserts the artifact with the current time as its freshness
// timestamp.
func (s *DBStore) Store(name string, artifact []byte, comments []string, dryRun bool) error {
	if dryRun {
		return nil
	}
	_, err := s.db.Exec(
		`INSERT INTO compiled_modules (name, artifact, updated) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET artifact = excluded.artifact, updated = excluded.updated`,
		name, artifact, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("storing %s: %w", name, err)
	}
	return nil
}

// Load returns the stored artifact, or nil when absent.
func (s *DBStore) Load(name string) []byte {
	var artifact []byte
	err := s.db.QueryRow(
		`SELECT artifact FROM compiled_modules WHERE name = ?`, name,
	).Scan(&artifact)
	if err != nil {
		return nil
	}
	return artifact
}

// CheckFresh implements the Searcher protocol against the stored
// timestamps.
func (s *DBStore) CheckFresh(name string, modTime time.Time, rebuild bool) error {
	if rebuild {
		return fs.ErrNotExist
	}

	var updated int64
	err := s.db.QueryRow(
		`SELECT updated FROM compiled_modules WHERE name = ?`, name,
	).Scan(&updated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fs.ErrNotExist
	case err != nil:
		return fmt.Errorf("checking stored module %s: %w", name, err)
	}

	if updated >= modTime.Unix() {
		return ErrNotModified
	}
	return fs.ErrNotExist
}
