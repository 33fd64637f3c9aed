package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	metrics "github.com/tigerroll/caseflow/pkg/engine/core/metrics"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
// Every recorder owns its registry so that tests and several engines in one
// process do not collide on the default registerer.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Command Metrics
	commandDurationSeconds *prometheus.HistogramVec
	commandTotal           *prometheus.CounterVec

	// Batch Metrics
	batchSubmittedTotal  *prometheus.CounterVec
	batchChildren        *prometheus.HistogramVec
	childFinishedTotal   *prometheus.CounterVec
	batchCompletedTotal  *prometheus.CounterVec
	batchDurationSeconds *prometheus.HistogramVec

	// Job Metrics
	jobAttemptTotal           *prometheus.CounterVec
	jobAttemptDurationSeconds *prometheus.HistogramVec

	durationSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		commandDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caseflow_command_duration_seconds",
			Help:    "Duration of command dispatches.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command", "outcome"}),
		commandTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_command_total",
			Help: "Total number of command dispatches by outcome.",
		}, []string{"command", "outcome"}),
		batchSubmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_batch_submitted_total",
			Help: "Total number of submitted parent batches.",
		}, []string{"type"}),
		batchChildren: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caseflow_batch_children",
			Help:    "Number of child batches created per parent batch.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"type"}),
		childFinishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_child_finished_total",
			Help: "Total number of child batches reaching a terminal status.",
		}, []string{"type", "status"}),
		batchCompletedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_batch_completed_total",
			Help: "Total number of completed parent batches.",
		}, []string{"type"}),
		batchDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caseflow_batch_duration_seconds",
			Help:    "Wall-clock duration of parent batches from creation to completion.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"type"}),
		jobAttemptTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_job_attempt_total",
			Help: "Total number of scheduler job attempts by outcome.",
		}, []string{"handler", "outcome"}),
		jobAttemptDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caseflow_job_attempt_duration_seconds",
			Help:    "Duration of scheduler job attempts.",
			Buckets: prometheus.DefBuckets,
		}, []string{"handler", "outcome"}),
		durationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caseflow_duration_seconds",
			Help:    "Arbitrary named durations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"name"}),
	}

	registry.MustRegister(
		r.commandDurationSeconds,
		r.commandTotal,
		r.batchSubmittedTotal,
		r.batchChildren,
		r.childFinishedTotal,
		r.batchCompletedTotal,
		r.batchDurationSeconds,
		r.jobAttemptTotal,
		r.jobAttemptDurationSeconds,
		r.durationSeconds,
	)
	return r
}

// Registry returns the registry the recorder's collectors are registered with.
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *PrometheusRecorder) RecordCommand(ctx context.Context, commandName string, outcome string, duration time.Duration) {
	r.commandDurationSeconds.WithLabelValues(commandName, outcome).Observe(duration.Seconds())
	r.commandTotal.WithLabelValues(commandName, outcome).Inc()
}

func (r *PrometheusRecorder) RecordBatchSubmitted(ctx context.Context, batch *model.Batch, children int) {
	if batch == nil {
		return
	}
	r.batchSubmittedTotal.WithLabelValues(batch.Type).Inc()
	r.batchChildren.WithLabelValues(batch.Type).Observe(float64(children))
}

func (r *PrometheusRecorder) RecordChildFinished(ctx context.Context, child *model.Batch) {
	if child == nil {
		return
	}
	r.childFinishedTotal.WithLabelValues(child.Type, child.Status.String()).Inc()
}

func (r *PrometheusRecorder) RecordBatchCompleted(ctx context.Context, batch *model.Batch) {
	if batch == nil {
		return
	}
	r.batchCompletedTotal.WithLabelValues(batch.Type).Inc()
	if d, ok := batchDuration(batch); ok {
		r.batchDurationSeconds.WithLabelValues(batch.Type).Observe(d.Seconds())
	}
}

func (r *PrometheusRecorder) RecordJobAttempt(ctx context.Context, handlerType string, outcome string, duration time.Duration) {
	r.jobAttemptTotal.WithLabelValues(handlerType, outcome).Inc()
	r.jobAttemptDurationSeconds.WithLabelValues(handlerType, outcome).Observe(duration.Seconds())
}

// RecordDuration records a named duration. Tags are not used as labels since
// their key set is not fixed.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.durationSeconds.WithLabelValues(name).Observe(duration.Seconds())
}

// batchDuration is the wall-clock time between CreateTime and CompleteTime.
func batchDuration(b *model.Batch) (time.Duration, bool) {
	if b.CompleteTime == nil || b.CreateTime.IsZero() {
		return 0, false
	}
	d := b.CompleteTime.Sub(b.CreateTime)
	if d < 0 {
		return 0, false
	}
	return d, true
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
