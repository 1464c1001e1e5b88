package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// newMigrator builds a migrate instance over the embedded schema files.
// Callers own the returned instance and must Close it.
func newMigrator(databaseURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("loading embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening migration target: %w", err)
	}
	return m, nil
}

// Migrate applies all pending schema migrations. Running against an
// up-to-date schema is not an error.
func Migrate(databaseURL string) error {
	m, err := newMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("schema already up to date", "version", schemaVersion(m))
			return nil
		}
		return fmt.Errorf("applying migrations: %w", err)
	}

	slog.Info("schema migrated", "version", schemaVersion(m))
	return nil
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(databaseURL string) error {
	m, err := newMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("rolling back migration: %w", err)
	}

	slog.Info("schema rolled back one step", "version", schemaVersion(m))
	return nil
}

// schemaVersion reads the current migration version for logging. A dirty or
// unversioned schema reports 0; the migrate calls themselves surface those
// states as errors.
func schemaVersion(m *migrate.Migrate) uint {
	version, _, err := m.Version()
	if err != nil {
		return 0
	}
	return version
}
