package postgresql

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratePsql "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrateUp applies every pending migration found under dir
func (c *Client) MigrateUp(dir, dbName string) error {
	driver, err := migratePsql.WithInstance(c.db.DB, &migratePsql.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	c.logger.Info("Migrations started", slog.String("dir", dir))

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, dbName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrations instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	c.logger.Info("Migrations applied successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}
