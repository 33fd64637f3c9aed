package app

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/caseflow/pkg/engine/core/caseinstance"
	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/core/migration"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

const demoPollInterval = 200 * time.Millisecond

// DemoEnabled reports whether CASEFLOW_DEMO asks for the demo run.
func DemoEnabled() bool {
	return strings.EqualFold(os.Getenv("CASEFLOW_DEMO"), "true")
}

// DemoParams are the dependencies of registerDemo.
type DemoParams struct {
	fx.In
	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Service    *migration.Service
	Logging    *config.LoggingConfig
	AppCtx     context.Context `name:"appCtx"`
}

// registerDemo starts a case instance, submits a validation run over a fixed
// set of instances, waits for its report and shuts the application down.
func registerDemo(p DemoParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in demo run: %v", r)
					}
					if err := p.Shutdowner.Shutdown(); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()
				logger.Debugf("Demo running with log level %s.", p.Logging.Level)
				if err := RunDemo(p.AppCtx, p.Service); err != nil {
					logger.Errorf("Demo run failed: %v", err)
				}
			}()
			return nil
		},
	})
}

// RunDemo drives the engine through one validation run.
func RunDemo(ctx context.Context, svc *migration.Service) error {
	inst, err := svc.StartCaseInstance(ctx, caseinstance.NewBuilder().
		CaseDefinitionKey("claim").
		BusinessKey("demo-1").
		Variable("amount", 1200))
	if err != nil {
		return err
	}
	logger.Infof("Demo: case instance %s started (definition %s).", inst.ID, inst.CaseDefinitionID)

	doc := model.MigrationDocument{
		SourceDefinitionID:  "claim-process:1",
		TargetDefinitionKey: "claim-process",
		TargetVersion:       2,
	}
	selector := migration.StaticInstanceSelector{"pi-1", StaleInstancePrefix + "pi-2", "pi-3"}
	batchID, err := svc.SubmitMigration(ctx, doc, selector)
	if err != nil {
		return err
	}
	logger.Infof("Demo: validation batch %s submitted.", batchID)

	ticker := time.NewTicker(demoPollInterval)
	defer ticker.Stop()
	for {
		report, err := svc.GetValidationResult(ctx, batchID)
		if err != nil {
			return err
		}
		if report.Ready {
			for _, r := range report.Results {
				logger.Infof("Demo: instance=%q messages=%v", r.ProcessInstanceID, r.Messages)
			}
			logger.Infof("Demo: batch %s completed with %d result(s).", batchID, len(report.Results))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// DemoModule registers the demo run.
var DemoModule = fx.Options(
	fx.Invoke(registerDemo),
)
