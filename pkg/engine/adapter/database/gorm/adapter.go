// Package gorm implements the database adapter of the engine on GORM:
// connections, transactions, connection providers per dialect and a resolver
// selecting the provider from configuration.
package gorm

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/caseflow/pkg/engine/adapter/database/config"
	"github.com/tigerroll/caseflow/pkg/engine/core/adapter"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// GormDBAdapter implements adapter.DBConnection over a *gorm.DB.
type GormDBAdapter struct {
	statements
	sqlDB  *sql.DB
	cfg    dbconfig.DatabaseConfig
	dbType string
	name   string
}

// NewGormDBAdapter wraps db as the connection called name.
func NewGormDBAdapter(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) *GormDBAdapter {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Errorf("Failed to get underlying *sql.DB of connection '%s': %v", name, err)
	}
	return &GormDBAdapter{
		statements: statements{db: db},
		sqlDB:      sqlDB,
		cfg:        cfg,
		dbType:     cfg.Type,
		name:       name,
	}
}

// GormDB returns the underlying *gorm.DB. It is meant for this package and the schema migrator.
func (a *GormDBAdapter) GormDB() *gorm.DB {
	return a.db
}

func (a *GormDBAdapter) Close() error {
	if a.sqlDB != nil {
		logger.Infof("Closing database connection '%s'...", a.name)
		return a.sqlDB.Close()
	}
	return nil
}

func (a *GormDBAdapter) Type() string {
	return a.dbType
}

func (a *GormDBAdapter) Name() string {
	return a.name
}

// RefreshConnection pings the connection pool.
func (a *GormDBAdapter) RefreshConnection(ctx context.Context) error {
	if a.sqlDB == nil {
		return fmt.Errorf("database connection '%s' is not initialized", a.name)
	}
	return a.sqlDB.PingContext(ctx)
}

func (a *GormDBAdapter) Config() dbconfig.DatabaseConfig {
	return a.cfg
}

func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	if a.sqlDB == nil {
		return nil, fmt.Errorf("underlying sql.DB of connection '%s' is nil", a.name)
	}
	return a.sqlDB, nil
}

func (a *GormDBAdapter) IsTableNotExistError(err error) bool {
	return isTableNotExistError(err)
}

// ExecuteUpdate runs CREATE, UPDATE or DELETE outside of any transaction.
func (a *GormDBAdapter) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	s := statements{db: a.db.Session(&gorm.Session{SkipDefaultTransaction: true})}
	return s.executeUpdate(ctx, model, operation, tableName, query)
}

func (a *GormDBAdapter) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	s := statements{db: a.db.Session(&gorm.Session{SkipDefaultTransaction: true})}
	return s.executeUpsert(ctx, model, tableName, conflictColumns, updateColumns)
}

func (a *GormDBAdapter) ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error {
	return a.executeQuery(ctx, target, query)
}

func (a *GormDBAdapter) ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error {
	return a.executeQueryAdvanced(ctx, target, query, orderBy, limit)
}

func (a *GormDBAdapter) Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error) {
	return a.count(ctx, model, query)
}

var _ adapter.DBConnection = (*GormDBAdapter)(nil)
