package schema

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/caseflow/pkg/engine/core/adapter"
	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// MigrateOnStartParams are the dependencies of RegisterMigrateOnStart.
type MigrateOnStartParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Resolver  adapter.DBConnectionResolver
	Config    *config.Config
}

// RegisterMigrateOnStart migrates the Batch Store connection when the
// application starts, unless disabled by configuration.
func RegisterMigrateOnStart(p MigrateOnStartParams) {
	infra := p.Config.Caseflow.Infrastructure
	if infra.SkipSchemaMigration {
		logger.Infof("Schema migration is disabled by configuration.")
		return
	}
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			conn, err := p.Resolver.ResolveDBConnection(ctx, infra.BatchRepositoryDBRef)
			if err != nil {
				return err
			}
			return NewMigrator(conn).Up(ctx)
		},
	})
}

// Module runs the schema migration on start.
var Module = fx.Options(
	fx.Invoke(RegisterMigrateOnStart),
)
