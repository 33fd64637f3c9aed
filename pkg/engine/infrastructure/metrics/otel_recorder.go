package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	metrics "github.com/tigerroll/caseflow/pkg/engine/core/metrics"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
)

// OTelMetricRecorder is an implementation of metrics.MetricRecorder that
// records through an OpenTelemetry meter.
type OTelMetricRecorder struct {
	commandDuration  otelmetric.Float64Histogram
	batchSubmitted   otelmetric.Int64Counter
	batchChildren    otelmetric.Int64Histogram
	childFinished    otelmetric.Int64Counter
	batchCompleted   otelmetric.Int64Counter
	batchDuration    otelmetric.Float64Histogram
	jobAttempt       otelmetric.Int64Counter
	jobAttemptLength otelmetric.Float64Histogram
	duration         otelmetric.Float64Histogram
}

// NewOTelMetricRecorder creates the instruments on a meter of provider.
func NewOTelMetricRecorder(provider otelmetric.MeterProvider) (*OTelMetricRecorder, error) {
	meter := provider.Meter(InstrumentationName)
	r := &OTelMetricRecorder{}
	var err error

	if r.commandDuration, err = meter.Float64Histogram("caseflow.command.duration",
		otelmetric.WithUnit("s"), otelmetric.WithDescription("Duration of command dispatches.")); err != nil {
		return nil, instrumentError("caseflow.command.duration", err)
	}
	if r.batchSubmitted, err = meter.Int64Counter("caseflow.batch.submitted",
		otelmetric.WithDescription("Submitted parent batches.")); err != nil {
		return nil, instrumentError("caseflow.batch.submitted", err)
	}
	if r.batchChildren, err = meter.Int64Histogram("caseflow.batch.children",
		otelmetric.WithDescription("Child batches created per parent batch.")); err != nil {
		return nil, instrumentError("caseflow.batch.children", err)
	}
	if r.childFinished, err = meter.Int64Counter("caseflow.child.finished",
		otelmetric.WithDescription("Child batches reaching a terminal status.")); err != nil {
		return nil, instrumentError("caseflow.child.finished", err)
	}
	if r.batchCompleted, err = meter.Int64Counter("caseflow.batch.completed",
		otelmetric.WithDescription("Completed parent batches.")); err != nil {
		return nil, instrumentError("caseflow.batch.completed", err)
	}
	if r.batchDuration, err = meter.Float64Histogram("caseflow.batch.duration",
		otelmetric.WithUnit("s"), otelmetric.WithDescription("Parent batch duration from creation to completion.")); err != nil {
		return nil, instrumentError("caseflow.batch.duration", err)
	}
	if r.jobAttempt, err = meter.Int64Counter("caseflow.job.attempt",
		otelmetric.WithDescription("Scheduler job attempts.")); err != nil {
		return nil, instrumentError("caseflow.job.attempt", err)
	}
	if r.jobAttemptLength, err = meter.Float64Histogram("caseflow.job.attempt.duration",
		otelmetric.WithUnit("s"), otelmetric.WithDescription("Duration of scheduler job attempts.")); err != nil {
		return nil, instrumentError("caseflow.job.attempt.duration", err)
	}
	if r.duration, err = meter.Float64Histogram("caseflow.duration",
		otelmetric.WithUnit("s"), otelmetric.WithDescription("Arbitrary named durations.")); err != nil {
		return nil, instrumentError("caseflow.duration", err)
	}
	return r, nil
}

func instrumentError(name string, err error) error {
	return exception.NewEngineErrorf("OTelMetricRecorder", exception.KindInternal, "failed to create instrument %s", name, err)
}

func (r *OTelMetricRecorder) RecordCommand(ctx context.Context, commandName string, outcome string, duration time.Duration) {
	r.commandDuration.Record(ctx, duration.Seconds(), otelmetric.WithAttributes(
		attribute.String("command", commandName),
		attribute.String("outcome", outcome),
	))
}

func (r *OTelMetricRecorder) RecordBatchSubmitted(ctx context.Context, batch *model.Batch, children int) {
	if batch == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("type", batch.Type))
	r.batchSubmitted.Add(ctx, 1, attrs)
	r.batchChildren.Record(ctx, int64(children), attrs)
}

func (r *OTelMetricRecorder) RecordChildFinished(ctx context.Context, child *model.Batch) {
	if child == nil {
		return
	}
	r.childFinished.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("type", child.Type),
		attribute.String("status", child.Status.String()),
	))
}

func (r *OTelMetricRecorder) RecordBatchCompleted(ctx context.Context, batch *model.Batch) {
	if batch == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("type", batch.Type))
	r.batchCompleted.Add(ctx, 1, attrs)
	if d, ok := batchDuration(batch); ok {
		r.batchDuration.Record(ctx, d.Seconds(), attrs)
	}
}

func (r *OTelMetricRecorder) RecordJobAttempt(ctx context.Context, handlerType string, outcome string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("handler", handlerType),
		attribute.String("outcome", outcome),
	)
	r.jobAttempt.Add(ctx, 1, attrs)
	r.jobAttemptLength.Record(ctx, duration.Seconds(), attrs)
}

// RecordDuration records a named duration; tags become attributes.
func (r *OTelMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	kvs := make([]attribute.KeyValue, 0, len(tags)+1)
	kvs = append(kvs, attribute.String("name", name))
	for k, v := range tags {
		kvs = append(kvs, attribute.String(k, v))
	}
	r.duration.Record(ctx, duration.Seconds(), otelmetric.WithAttributes(kvs...))
}

var _ metrics.MetricRecorder = (*OTelMetricRecorder)(nil)
