package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
)

// NoOpMetricRecorder is a MetricRecorder that does nothing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordCommand(ctx context.Context, commandName string, outcome string, duration time.Duration) {
}
func (r *NoOpMetricRecorder) RecordBatchSubmitted(ctx context.Context, batch *model.Batch, children int) {
}
func (r *NoOpMetricRecorder) RecordChildFinished(ctx context.Context, child *model.Batch)  {}
func (r *NoOpMetricRecorder) RecordBatchCompleted(ctx context.Context, batch *model.Batch) {}
func (r *NoOpMetricRecorder) RecordJobAttempt(ctx context.Context, handlerType string, outcome string, duration time.Duration) {
}
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// NoOpTracer is a Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartCommandSpan(ctx context.Context, commandName string) (context.Context, func()) {
	return ctx, func() {}
}
func (t *NoOpTracer) StartJobSpan(ctx context.Context, handlerType string, batchID string, attempt int) (context.Context, func()) {
	return ctx, func() {}
}
func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}
func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

var _ Tracer = (*NoOpTracer)(nil)
