// Package app wires the caseflow engine into a runnable application.
package app

import (
	"go.uber.org/fx"

	gormadapter "github.com/tigerroll/caseflow/pkg/engine/adapter/database/gorm"
	"github.com/tigerroll/caseflow/pkg/engine/adapter/database/gorm/mysql"
	"github.com/tigerroll/caseflow/pkg/engine/adapter/database/gorm/postgres"
	"github.com/tigerroll/caseflow/pkg/engine/adapter/database/gorm/sqlite"
	"github.com/tigerroll/caseflow/pkg/engine/component/schema"
	"github.com/tigerroll/caseflow/pkg/engine/core/caseinstance"
	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
	"github.com/tigerroll/caseflow/pkg/engine/core/migration"
	"github.com/tigerroll/caseflow/pkg/engine/infrastructure/repository/inmemory"
	sqlrepo "github.com/tigerroll/caseflow/pkg/engine/infrastructure/repository/sql"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// DBProviderMap maps DB_ADAPTORS names to their provider modules.
var DBProviderMap = map[string]fx.Option{
	"sqlite":   sqlite.Module,
	"postgres": postgres.Module,
	"mysql":    mysql.Module,
}

// StoreOptions selects the Batch Store from caseflow.infrastructure.batch_repository_type.
// The SQL store brings the schema migration and the GORM transaction manager
// of its connection; the in-memory store brings its own transaction manager.
func StoreOptions(cfg *config.Config) fx.Option {
	switch cfg.Caseflow.Infrastructure.BatchRepositoryType {
	case config.RepositoryTypeInMemory:
		logger.Infof("Batch Store: in-memory.")
		return inmemory.Module
	default:
		logger.Infof("Batch Store: SQL on connection '%s'.", cfg.Caseflow.Infrastructure.BatchRepositoryDBRef)
		return fx.Options(
			sqlrepo.Module,
			gormadapter.TransactionModule,
			schema.Module,
		)
	}
}

// Module provides the definition catalog and the collaborators built on it.
var Module = fx.Options(
	fx.Provide(
		LoadCatalog,
		fx.Annotate(NewCatalogValidator, fx.As(new(migration.Validator))),
		fx.Annotate(NewCatalogStarter, fx.As(new(caseinstance.Starter))),
	),
)
