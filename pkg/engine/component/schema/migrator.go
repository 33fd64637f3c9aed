// Package schema applies the embedded database migrations of the engine's
// tables with golang-migrate.
package schema

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/caseflow/pkg/engine/core/adapter"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

//go:embed resources/migrations
var migrationFS embed.FS

// MigrationsTable is the golang-migrate bookkeeping table.
const MigrationsTable = "caseflow_schema_migrations"

// MigrationsFS returns the migrations of dbType as a file system rooted at the dialect directory.
func MigrationsFS(dbType string) (fs.FS, error) {
	return fs.Sub(migrationFS, "resources/migrations/"+dbType)
}

// Migrator applies the engine's migrations to one connection.
type Migrator struct {
	dbConn adapter.DBConnection
	dbType string
}

// NewMigrator creates a Migrator for dbConn.
func NewMigrator(dbConn adapter.DBConnection) *Migrator {
	return &Migrator{dbConn: dbConn, dbType: dbConn.Type()}
}

func (m *Migrator) databaseDriver(sqlDB *sql.DB) (database.Driver, error) {
	switch m.dbType {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: MigrationsTable})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: MigrationsTable})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbType)
	}
}

// Up applies every pending migration. An up-to-date schema is not an error.
//
// The migrate instance is not closed: its database driver would close the
// shared connection pool. The pool is closed at shutdown instead.
func (m *Migrator) Up(ctx context.Context) error {
	sqlDB, err := m.dbConn.GetSQLDB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sub, err := MigrationsFS(m.dbType)
	if err != nil {
		return fmt.Errorf("no migrations for database type %s: %w", m.dbType, err)
	}
	sourceDriver, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver for %s: %w", m.dbType, err)
	}
	defer sourceDriver.Close()

	dbDriver, err := m.databaseDriver(sqlDB)
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}
	mInstance, err := migrate.NewWithInstance("iofs", sourceDriver, m.dbType, dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	logger.Infof("Applying schema migrations to '%s' (%s).", m.dbConn.Name(), m.dbType)
	if err := mInstance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, dirty, verr := mInstance.Version()
		if verr != nil {
			logger.Errorf("Migration failed and failed to retrieve version: %v", verr)
		} else {
			logger.Errorf("Migration failed at version %d (dirty: %t).", version, dirty)
		}
		return fmt.Errorf("migration failed (DB: %s): %w", m.dbType, err)
	}

	version, _, _ := mInstance.Version()
	logger.Infof("Schema of '%s' is at version %d.", m.dbConn.Name(), version)
	return nil
}
