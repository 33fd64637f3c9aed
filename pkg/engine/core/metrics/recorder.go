// Package metrics declares the observability ports of the engine. The
// Prometheus and OpenTelemetry implementations live in
// pkg/engine/infrastructure/metrics.
package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
)

// Outcome labels used when recording commands and jobs.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeRetry   = "retry"
)

// MetricRecorder records engine metrics.
type MetricRecorder interface {
	// RecordCommand records one dispatch of a command, including nested ones.
	RecordCommand(ctx context.Context, commandName string, outcome string, duration time.Duration)

	// RecordBatchSubmitted records a new parent batch and its fan-out.
	RecordBatchSubmitted(ctx context.Context, batch *model.Batch, children int)

	// RecordChildFinished records a child batch reaching a terminal status.
	RecordChildFinished(ctx context.Context, child *model.Batch)

	// RecordBatchCompleted records a parent batch reaching COMPLETED, with its
	// wall-clock duration derived from CreateTime/CompleteTime.
	RecordBatchCompleted(ctx context.Context, batch *model.Batch)

	// RecordJobAttempt records the outcome of one scheduler attempt of a job.
	RecordJobAttempt(ctx context.Context, handlerType string, outcome string, duration time.Duration)

	// RecordDuration records an arbitrary named duration.
	//
	// tags: extra labels, e.g. {"dialect": "sqlite"}.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
