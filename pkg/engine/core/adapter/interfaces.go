// Package adapter declares the connection abstractions the engine core uses
// to reach external resources. Concrete implementations live under
// pkg/engine/adapter.
package adapter

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/caseflow/pkg/engine/adapter/database/config"
)

// DBProviderGroup is the Fx value group collecting every DBProvider.
const DBProviderGroup = "db_providers"

// ResourceConnection is a generic named connection to an external resource.
type ResourceConnection interface {
	Close() error
	// Type returns the resource type, e.g. "mysql".
	Type() string
	// Name returns the configured connection name, e.g. "metadata".
	Name() string
}

// DBExecutor is the set of statements shared by a connection and a transaction.
type DBExecutor interface {
	// ExecuteUpdate performs a CREATE, UPDATE or DELETE and reports the affected rows.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)
	// ExecuteUpsert performs INSERT ... ON CONFLICT.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)
	// ExecuteQuery runs a SELECT with equality conditions.
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error
	// ExecuteQueryAdvanced runs a SELECT with optional ordering and limit.
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error
	// Count counts the records matching query.
	Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error)
}

// DBConnection is a database connection.
type DBConnection interface {
	ResourceConnection
	DBExecutor

	// IsTableNotExistError checks if err indicates a missing table.
	IsTableNotExistError(err error) bool
	// RefreshConnection pings the connection pool.
	RefreshConnection(ctx context.Context) error
	// Config returns the settings the connection was opened with.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB.
	GetSQLDB() (*sql.DB, error)
}

// DBProvider opens and caches connections of one database type.
type DBProvider interface {
	GetConnection(name string) (DBConnection, error)
	ForceReconnect(name string) (DBConnection, error)
	CloseAll() error
	Type() string
}

// DBConnectionResolver resolves a healthy connection by name, reconnecting if needed.
type DBConnectionResolver interface {
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}
