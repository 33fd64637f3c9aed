package app

import (
	"context"

	"go.uber.org/fx"

	gormadapter "github.com/tigerroll/caseflow/pkg/engine/adapter/database/gorm"
	"github.com/tigerroll/caseflow/pkg/engine/core/command"
	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
	"github.com/tigerroll/caseflow/pkg/engine/core/job"
	"github.com/tigerroll/caseflow/pkg/engine/core/migration"
	metrics "github.com/tigerroll/caseflow/pkg/engine/infrastructure/metrics"
	"github.com/tigerroll/caseflow/pkg/engine/infrastructure/scheduler"
	listenerlogging "github.com/tigerroll/caseflow/pkg/engine/listener/logging"
	listenermetrics "github.com/tigerroll/caseflow/pkg/engine/listener/metrics"
	listenertracing "github.com/tigerroll/caseflow/pkg/engine/listener/tracing"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// RunApplication loads the configuration and runs the engine until appCtx is
// cancelled or the demo run finishes.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, definitions DefinitionsYAML, dbProviderOptions []fx.Option) {
	cfg, err := config.NewConfigProvider(config.ConfigParams{
		EmbeddedConfig: embeddedConfig,
		EnvFilePath:    envFilePath,
	})
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	options := []fx.Option{
		fx.Supply(
			definitions,
			cfg,
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
		),

		fx.Options(dbProviderOptions...),
		logger.Module,
		config.Module,
		gormadapter.Module,
		StoreOptions(cfg),

		metrics.Module,
		listenermetrics.Module,
		listenerlogging.Module,
		listenertracing.Module,

		command.Module,
		job.Module,
		scheduler.Module,
		migration.Module,
		Module,
	}
	if DemoEnabled() {
		options = append(options, DemoModule)
	}

	app := fx.New(options...)
	startCtx, cancelStart := context.WithTimeout(appCtx, app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		logger.Fatalf("Application start failed: %v", err)
	}

	select {
	case <-appCtx.Done():
		logger.Warnf("Application context cancelled.")
	case sig := <-app.Wait():
		logger.Infof("Application shutdown requested (exit code %d).", sig.ExitCode)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		logger.Errorf("Application stop failed: %v", err)
	}
	logger.Infof("Application is shut down.")
}
