package command

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
	"github.com/tigerroll/caseflow/pkg/engine/core/metrics"
	"github.com/tigerroll/caseflow/pkg/engine/core/retry"
	"github.com/tigerroll/caseflow/pkg/engine/core/tx"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
)

// CommandExecutor dispatches commands through the interceptor chain.
type CommandExecutor struct {
	chain         Interceptor
	factories     map[string]ResourceFactory
	defaultConfig Config
}

// Option configures a CommandExecutor built with New.
type Option func(*options)

type options struct {
	recorder    metrics.MetricRecorder
	tracer      metrics.Tracer
	retryPolicy retry.RetryPolicy
	resources   []ResourceRegistration
	extra       []Interceptor
	config      Config
}

// WithMetricRecorder sets the recorder used by the observation interceptor.
func WithMetricRecorder(r metrics.MetricRecorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithTracer sets the tracer used by the observation interceptor.
func WithTracer(t metrics.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithRetryPolicy sets the conflict retry policy. The default never retries.
func WithRetryPolicy(p retry.RetryPolicy) Option {
	return func(o *options) { o.retryPolicy = p }
}

// WithResource registers a resource factory for kind.
func WithResource(kind string, factory ResourceFactory) Option {
	return func(o *options) {
		o.resources = append(o.resources, ResourceRegistration{Kind: kind, Factory: factory})
	}
}

// WithInterceptors adds interceptors between the retry and context interceptors,
// so they run once per attempt and outside the execution context.
func WithInterceptors(ics ...Interceptor) Option {
	return func(o *options) { o.extra = append(o.extra, ics...) }
}

// WithDefaultConfig sets the Config used by Execute.
func WithDefaultConfig(c Config) Option {
	return func(o *options) { o.config = c }
}

// New creates a CommandExecutor over tm.
//
// The chain is, outermost first: log, observation, conflict retry, any extra
// interceptors, execution context, transaction, command.
func New(tm tx.TransactionManager, opts ...Option) *CommandExecutor {
	o := &options{
		recorder:    metrics.NewNoOpMetricRecorder(),
		tracer:      metrics.NewNoOpTracer(),
		retryPolicy: retry.NeverRetry{},
		config:      DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}

	factories := make(map[string]ResourceFactory, len(o.resources))
	for _, r := range o.resources {
		factories[r.Kind] = r.Factory
	}

	interceptors := []Interceptor{
		LogInterceptor(),
		ObservationInterceptor(o.recorder, o.tracer),
		RetryInterceptor(o.retryPolicy),
	}
	interceptors = append(interceptors, o.extra...)
	interceptors = append(interceptors,
		ContextInterceptor(factories),
		TransactionInterceptor(tm),
	)

	return &CommandExecutor{
		chain:         Chain(interceptors...),
		factories:     factories,
		defaultConfig: o.config,
	}
}

// CommandExecutorParams are the Fx dependencies of NewCommandExecutor.
type CommandExecutorParams struct {
	fx.In
	TxManager tx.TransactionManager
	Recorder  metrics.MetricRecorder
	Tracer    metrics.Tracer
	Config    *config.Config
	Resources []ResourceRegistration `group:"command_resources"`
}

// NewCommandExecutor is the Fx constructor. Conflict retry follows
// caseflow.engine.command_retry.
func NewCommandExecutor(p CommandExecutorParams) *CommandExecutor {
	opts := []Option{
		WithMetricRecorder(p.Recorder),
		WithTracer(p.Tracer),
		WithRetryPolicy(retry.NewExponentialPolicy(p.Config.Caseflow.Engine.CommandRetry, exception.IsOptimisticLockingFailure)),
	}
	for _, r := range p.Resources {
		opts = append(opts, WithResource(r.Kind, r.Factory))
	}
	return New(p.TxManager, opts...)
}

// Execute dispatches cmd with the executor's default Config.
func Execute[T any](ctx context.Context, exec *CommandExecutor, cmd Command[T]) (T, error) {
	return ExecuteWithConfig(ctx, exec, exec.defaultConfig, cmd)
}

// ExecuteWithConfig dispatches cmd with cfg.
func ExecuteWithConfig[T any](ctx context.Context, exec *CommandExecutor, cfg Config, cmd Command[T]) (T, error) {
	var zero T
	if cmd == nil {
		return zero, exception.NewInvalidArgumentError("CommandExecutor", "command must not be nil")
	}

	inv := &Invocation{
		Name:   commandName(cmd),
		Config: cfg,
		run: func(ec *ExecutionContext) (interface{}, error) {
			return cmd.Execute(ec)
		},
	}

	result, err := exec.chain(ctx, inv, inv.invoke)
	if err != nil || result == nil {
		return zero, err
	}
	return result.(T), nil
}

// invoke is the end of the chain. A panic in the command becomes a KindInternal
// error so that the transaction interceptor still rolls back.
func (inv *Invocation) invoke(ctx context.Context) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = exception.NewEngineError("CommandExecutor", exception.KindInternal, fmt.Sprintf("%s panicked: %v", inv.Name, r), nil, false)
		}
	}()
	return inv.run(FromContext(ctx))
}
