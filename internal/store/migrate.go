package store

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/capitalize-ai/event-tracker/internal/store/dialect"
	"github.com/capitalize-ai/event-tracker/internal/store/migrations"
)

const migrationsTable = "schema_migrations"

// Migrate applies all pending migrations for the store's dialect, including
// the event type reference data.
//
// The migration driver is not closed because it shares the store's pool.
func (s *Store) Migrate() error {
	source, err := iofs.New(migrations.FS, s.dialect.Name())
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	var driver database.Driver
	switch s.dialect.Name() {
	case string(dialect.SQLite):
		driver, err = migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{
			MigrationsTable: migrationsTable,
		})
	case string(dialect.Postgres):
		driver, err = migratepgx.WithInstance(s.db.DB, &migratepgx.Config{
			MigrationsTable: migrationsTable,
		})
	default:
		err = fmt.Errorf("no migration driver for dialect %s", s.dialect.Name())
	}
	if err != nil {
		return fmt.Errorf("initialize migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, s.dialect.Name(), driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
