package job

import (
	"go.uber.org/fx"

	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// HandlerGroup is the Fx group collecting job handlers.
const HandlerGroup = "job_handlers"

// HandlerParams collects the registered handlers.
type HandlerParams struct {
	fx.In
	Scheduler Scheduler
	Handlers  []Handler `group:"job_handlers"`
}

// RegisterHandlers hands every grouped Handler to the Scheduler. It runs as an
// Invoke so that the Scheduler does not depend on the handlers it serves.
func RegisterHandlers(p HandlerParams) {
	for _, h := range p.Handlers {
		p.Scheduler.RegisterHandler(h)
		logger.Debugf("Registered job handler '%s'.", h.Type())
	}
}

// Module contributes the job session resource to the command executor and
// registers job handlers. A Scheduler must be provided elsewhere.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewSessionRegistration,
			fx.ResultTags(`group:"command_resources"`),
		),
	),
	fx.Invoke(RegisterHandlers),
)
