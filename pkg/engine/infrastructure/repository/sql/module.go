package sql

import (
	"go.uber.org/fx"

	"github.com/tigerroll/caseflow/pkg/engine/core/adapter"
	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
	repository "github.com/tigerroll/caseflow/pkg/engine/core/domain/repository"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// NewSQLBatchRepositoryProvider builds the repository on the connection named
// by caseflow.infrastructure.batch_repository_db_ref.
func NewSQLBatchRepositoryProvider(resolver adapter.DBConnectionResolver, cfg *config.Config) repository.BatchRepository {
	dbName := cfg.Caseflow.Infrastructure.BatchRepositoryDBRef
	logger.Debugf("Batch Store uses database connection '%s'.", dbName)
	return NewSQLBatchRepository(resolver, dbName)
}

// Module provides the SQL Batch Store.
var Module = fx.Options(
	fx.Provide(NewSQLBatchRepositoryProvider),
)
