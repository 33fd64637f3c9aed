package metrics

import (
	"go.uber.org/fx"

	"github.com/tigerroll/caseflow/pkg/engine/core/migration"
)

// Module makes the MetricRecorder asynchronous and registers the metrics batch listener.
var Module = fx.Options(
	// fx.Decorate replaces the recorder provided by infrastructure/metrics
	// for every consumer, the command executor and scheduler included.
	fx.Decorate(NewAsyncMetricRecorderWrapper),

	fx.Provide(
		fx.Annotate(
			NewMetricsBatchListener,
			fx.As(new(migration.BatchListener)),
			fx.ResultTags(`group:"batch_listeners"`),
		),
	),
)
