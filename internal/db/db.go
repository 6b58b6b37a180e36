// Package db persists named sample sets in SQLite so they can be binned
// and rendered later. The schema is owned by the embedded migrations.
package db

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/hextiles/internal/monitoring"
	"github.com/banshee-data/hextiles/internal/timeutil"
)

// ErrDatasetNotFound is returned when a dataset id has no row.
var ErrDatasetNotFound = errors.New("dataset not found")

// DB wraps the SQLite handle.
type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// SetClock replaces the clock used to stamp new datasets.
func (db *DB) SetClock(c timeutil.Clock) { db.clock = c }

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
}

// OpenDB opens the database at path and applies connection pragmas
// without touching the schema. Use NewDB for a ready-to-use store.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps per-connection pragmas in force and
	// serialises writers.
	sqlDB.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}
	return &DB{DB: sqlDB, clock: timeutil.RealClock{}}, nil
}

// NewDB opens the database at path and migrates it to the latest schema.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	version, _, err := db.MigrateVersion()
	if err != nil {
		db.Close()
		return nil, err
	}
	monitoring.Logf("opened dataset store %s at schema version %d", path, version)
	return db, nil
}
