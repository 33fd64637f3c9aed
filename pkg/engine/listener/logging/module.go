package logging

import (
	"go.uber.org/fx"

	"github.com/tigerroll/caseflow/pkg/engine/core/migration"
)

// Module registers the logging batch listener.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewLoggingBatchListener,
			fx.As(new(migration.BatchListener)),
			fx.ResultTags(`group:"batch_listeners"`),
		),
	),
)
