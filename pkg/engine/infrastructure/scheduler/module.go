package scheduler

import (
	"context"
	"time"

	"go.uber.org/fx"

	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
	"github.com/tigerroll/caseflow/pkg/engine/core/job"
	"github.com/tigerroll/caseflow/pkg/engine/core/metrics"
	"github.com/tigerroll/caseflow/pkg/engine/core/retry"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
)

// SchedulerParams are the Fx dependencies of NewAsyncSchedulerProvider.
type SchedulerParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *config.Config
	Recorder  metrics.MetricRecorder
	Tracer    metrics.Tracer
}

// NewAsyncSchedulerProvider builds the scheduler from caseflow.engine.job and
// ties its workers to the application lifecycle. Transient errors and the
// configured retryable exceptions are retried.
func NewAsyncSchedulerProvider(p SchedulerParams) *AsyncScheduler {
	jobCfg := p.Config.Caseflow.Engine.Job
	s := NewAsyncScheduler(Options{
		Workers:   jobCfg.Workers,
		QueueSize: jobCfg.QueueSize,
		Policy:    retry.NewExponentialPolicy(jobCfg.Retry, exception.IsTemporary),
		Recorder:  p.Recorder,
		Tracer:    p.Tracer,
	})

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if jobCfg.ShutdownTimeoutSeconds > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(jobCfg.ShutdownTimeoutSeconds)*time.Second)
				defer cancel()
			}
			return s.Stop(ctx)
		},
	})
	return s
}

// Module provides the AsyncScheduler as job.Scheduler.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewAsyncSchedulerProvider,
			fx.As(fx.Self()),
			fx.As(new(job.Scheduler)),
		),
	),
)
