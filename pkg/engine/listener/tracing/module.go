package tracing

import (
	"go.uber.org/fx"

	"github.com/tigerroll/caseflow/pkg/engine/core/migration"
)

// Module registers the tracing batch listener.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewTracingBatchListener,
			fx.As(new(migration.BatchListener)),
			fx.ResultTags(`group:"batch_listeners"`),
		),
	),
)
