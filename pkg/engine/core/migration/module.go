package migration

import (
	"go.uber.org/fx"

	"github.com/tigerroll/caseflow/pkg/engine/core/caseinstance"
	"github.com/tigerroll/caseflow/pkg/engine/core/command"
	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
	repository "github.com/tigerroll/caseflow/pkg/engine/core/domain/repository"
	"github.com/tigerroll/caseflow/pkg/engine/core/job"
)

// BatchListenerGroup is the Fx group collecting BatchListener implementations.
const BatchListenerGroup = "batch_listeners"

// RuntimeParams are the Fx dependencies of NewRuntimeProvider.
type RuntimeParams struct {
	fx.In
	Repository repository.BatchRepository
	Validator  Validator
	Listeners  []BatchListener `group:"batch_listeners"`
	Config     *config.Config
}

// NewRuntimeProvider builds the Runtime from the container.
func NewRuntimeProvider(p RuntimeParams) *Runtime {
	return NewRuntime(p.Repository, p.Validator, BatchListeners(p.Listeners), p.Config.Caseflow.Engine.ValidationBatchType)
}

// ServiceParams are the Fx dependencies of NewServiceProvider.
type ServiceParams struct {
	fx.In
	Executor *command.CommandExecutor
	Runtime  *Runtime
	Starter  caseinstance.Starter `optional:"true"`
}

// NewServiceProvider builds the Service from the container.
func NewServiceProvider(p ServiceParams) *Service {
	return NewService(p.Executor, p.Runtime, p.Starter)
}

// Module provides the migration Runtime, Service and the validation job handler.
// A Validator and a BatchRepository must be provided elsewhere.
var Module = fx.Options(
	fx.Provide(
		NewRuntimeProvider,
		NewServiceProvider,
		fx.Annotate(
			NewValidationJobHandler,
			fx.As(new(job.Handler)),
			fx.ResultTags(`group:"job_handlers"`),
		),
	),
)
