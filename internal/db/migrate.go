package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/banshee-data/hextiles/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateUp applies every pending schema migration. An up-to-date schema
// is not an error.
func (db *DB) MigrateUp() error {
	return db.migrateWith("up", func(m *migrate.Migrate) error { return m.Up() })
}

// MigrateDown reverts the newest applied migration.
func (db *DB) MigrateDown() error {
	return db.migrateWith("down", func(m *migrate.Migrate) error { return m.Steps(-1) })
}

// MigrateForce records version as applied and clears the dirty flag
// without running any SQL. Use it after repairing a failed migration by
// hand.
func (db *DB) MigrateForce(version int) error {
	return db.migrateWith(fmt.Sprintf("force %d", version), func(m *migrate.Migrate) error {
		return m.Force(version)
	})
}

// MigrateVersion reports the applied schema version. A fresh database is
// version 0.
func (db *DB) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := db.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (db *DB) migrateWith(action string, run func(*migrate.Migrate) error) error {
	m, err := db.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: closing it would close the shared *sql.DB.
	if err := run(m); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("migrate %s: %w", action, err)
	}
	if v, dirty, err := m.Version(); err == nil {
		monitoring.Debugf("migrate %s: schema version %d (dirty=%t)", action, v, dirty)
	}
	return nil
}

func (db *DB) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("migrate instance: %w", err)
	}
	return m, nil
}
