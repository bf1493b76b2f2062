package db

import (
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-engine/migrations"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

// Migrate applies the embedded migrations of the given driver.
// Postgres migrations run over their own connection built from dsn, which must be a URL.
// SQLite migrations reuse db, since an in-memory database is private to its connection.
func Migrate(db *sqlx.DB, driver, dsn string) error {
	src, err := iofs.New(migrations.FS, driver)
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations for %s: %w", driver, err)
	}

	switch driver {
	case DriverSQLite:
		instance, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
		if err != nil {
			return fmt.Errorf("failed to create sqlite migrate driver: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", src, DriverSQLite, instance)
		if err != nil {
			return fmt.Errorf("failed to create migrate instance: %w", err)
		}
		// m.Close() здесь не вызываем: драйвер sqlite3 закрыл бы общий *sql.DB
		return up(m)

	case DriverPostgres:
		m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
		if err != nil {
			return fmt.Errorf("failed to create migrate instance: %w", err)
		}
		defer m.Close()
		return up(m)

	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
}

func up(m *migrate.Migrate) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
