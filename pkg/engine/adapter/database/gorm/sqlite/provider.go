// Package sqlite provides the GORM DBProvider for SQLite databases.
package sqlite

import (
	"errors"

	"go.uber.org/fx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/caseflow/pkg/engine/adapter/database/config"
	gormadapter "github.com/tigerroll/caseflow/pkg/engine/adapter/database/gorm"
	"github.com/tigerroll/caseflow/pkg/engine/core/adapter"
	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
)

func init() {
	gormadapter.RegisterDialector("sqlite", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		dsn, err := ConnectionString(cfg)
		if err != nil {
			return nil, err
		}
		return sqlite.Open(dsn), nil
	})
}

// ConnectionString returns the database file path, which is the SQLite DSN.
func ConnectionString(c dbconfig.DatabaseConfig) (string, error) {
	if c.Database == "" {
		return "", errors.New("SQLite database path cannot be empty")
	}
	return c.Database, nil
}

// SQLiteDBProvider implements adapter.DBProvider for SQLite connections.
type SQLiteDBProvider struct {
	*gormadapter.BaseProvider
}

// NewProvider creates the SQLite provider. SQLite allows a single writer, so
// connections default to one open connection.
func NewProvider(cfg *config.Config) adapter.DBProvider {
	base := gormadapter.NewBaseProvider(cfg, "sqlite").WithDefaultPool(dbconfig.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	return &SQLiteDBProvider{BaseProvider: base}
}

// Module exports the SQLite DBProvider.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewProvider,
			fx.ResultTags(`group:"`+adapter.DBProviderGroup+`"`),
		),
	),
)
