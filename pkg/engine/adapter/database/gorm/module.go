package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/caseflow/pkg/engine/core/adapter"
	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
	"github.com/tigerroll/caseflow/pkg/engine/core/tx"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// NewBatchTransactionManager returns the transaction manager of the connection
// holding the batch tables (caseflow.infrastructure.batch_repository_db_ref).
func NewBatchTransactionManager(resolver adapter.DBConnectionResolver, cfg *config.Config) tx.TransactionManager {
	return NewGormTransactionManager(resolver, cfg.Caseflow.Infrastructure.BatchRepositoryDBRef)
}

func registerShutdown(lc fx.Lifecycle, resolver *GormDBConnectionResolver) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Infof("Closing all database connections.")
			return resolver.CloseAll()
		},
	})
}

// Module provides the connection resolver and transaction manager factory.
// Dialect providers come from the sqlite, postgres and mysql subpackages.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewGormDBConnectionResolver,
			fx.As(fx.Self()),
			fx.As(new(adapter.DBConnectionResolver)),
		),
		NewGormTransactionManagerFactory,
	),
	fx.Invoke(registerShutdown),
)

// TransactionModule provides the batch connection's tx.TransactionManager to
// the command executor. It is used together with the SQL Batch Store.
var TransactionModule = fx.Options(
	fx.Provide(NewBatchTransactionManager),
)
