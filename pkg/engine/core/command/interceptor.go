package command

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tigerroll/caseflow/pkg/engine/core/metrics"
	"github.com/tigerroll/caseflow/pkg/engine/core/retry"
	"github.com/tigerroll/caseflow/pkg/engine/core/tx"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// Handler is the continuation of an interceptor.
type Handler func(ctx context.Context) (interface{}, error)

// Invocation describes the dispatch passing through the chain.
type Invocation struct {
	Name   string
	Config Config
	run    func(ec *ExecutionContext) (interface{}, error)
}

// Interceptor wraps a dispatch with cross-cutting behavior.
type Interceptor func(ctx context.Context, inv *Invocation, next Handler) (interface{}, error)

// Chain composes interceptors; the first one is the outermost.
func Chain(interceptors ...Interceptor) Interceptor {
	return func(ctx context.Context, inv *Invocation, final Handler) (interface{}, error) {
		h := final
		for i := len(interceptors) - 1; i >= 0; i-- {
			ic, next := interceptors[i], h
			h = func(ctx context.Context) (interface{}, error) {
				return ic(ctx, inv, next)
			}
		}
		return h(ctx)
	}
}

// joinsActiveContext reports whether the dispatch will reuse an open ExecutionContext.
func joinsActiveContext(ctx context.Context, inv *Invocation) bool {
	ec := FromContext(ctx)
	return ec != nil && !ec.closed && inv.Config.Propagation == PropagationRequired
}

// LogInterceptor logs entry, exit and duration of every dispatch at DEBUG.
func LogInterceptor() Interceptor {
	return func(ctx context.Context, inv *Invocation, next Handler) (interface{}, error) {
		nested := joinsActiveContext(ctx, inv)
		logger.Debugf("--- starting %s (nested: %t, propagation: %s) ---", inv.Name, nested, inv.Config.Propagation)
		start := time.Now()
		result, err := next(ctx)
		if err != nil {
			logger.Debugf("--- %s failed after %s: %v ---", inv.Name, time.Since(start), err)
		} else {
			logger.Debugf("--- %s finished in %s ---", inv.Name, time.Since(start))
		}
		return result, err
	}
}

// ObservationInterceptor opens a span and records a command metric per dispatch.
func ObservationInterceptor(recorder metrics.MetricRecorder, tracer metrics.Tracer) Interceptor {
	return func(ctx context.Context, inv *Invocation, next Handler) (interface{}, error) {
		spanCtx, end := tracer.StartCommandSpan(ctx, inv.Name)
		defer end()

		start := time.Now()
		result, err := next(spanCtx)
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeFailure
			tracer.RecordError(spanCtx, inv.Name, err)
		}
		recorder.RecordCommand(spanCtx, inv.Name, outcome, time.Since(start))
		return result, err
	}
}

// RetryInterceptor re-runs a whole outermost dispatch when policy accepts the
// error, typically an optimistic locking conflict. Nested dispatches are never
// retried on their own; their failure is retried with the outermost one.
func RetryInterceptor(policy retry.RetryPolicy) Interceptor {
	return func(ctx context.Context, inv *Invocation, next Handler) (interface{}, error) {
		if inv.Config.DisableRetry || joinsActiveContext(ctx, inv) {
			return next(ctx)
		}
		for attempt := 1; ; attempt++ {
			result, err := next(ctx)
			if err == nil || attempt >= policy.MaxAttempts() || !policy.ShouldRetry(err) {
				return result, err
			}
			wait := policy.Backoff(attempt)
			logger.Warnf("%s failed on attempt %d/%d, retrying in %s: %v", inv.Name, attempt, policy.MaxAttempts(), wait, err)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, err
			case <-timer.C:
			}
		}
	}
}

// ContextInterceptor creates the ExecutionContext of an outermost dispatch, or
// reuses the active one. The context is closed when the outermost dispatch exits.
func ContextInterceptor(factories map[string]ResourceFactory) Interceptor {
	return func(ctx context.Context, inv *Invocation, next Handler) (interface{}, error) {
		if joinsActiveContext(ctx, inv) {
			existing := FromContext(ctx)
			// The nested command sees ctx, which carries its own span.
			if _, ok := tx.FromContext(ctx); !ok && existing.transaction != nil {
				ctx = tx.NewContext(ctx, existing.transaction)
			}
			outer := existing.ctx
			existing.ctx = ctx
			defer func() { existing.ctx = outer }()

			result, err := next(ctx)
			if err != nil {
				existing.SetRollbackOnly(err)
			}
			return result, err
		}

		ec := newExecutionContext(ctx, factories)
		ec.ctx = withExecutionContext(ctx, ec)
		defer ec.close()
		return next(ec.ctx)
	}
}

// TransactionInterceptor begins a transaction for a new ExecutionContext and
// commits or rolls it back on exit. A joined dispatch runs inside the existing
// transaction untouched.
func TransactionInterceptor(tm tx.TransactionManager) Interceptor {
	const module = "TransactionInterceptor"
	return func(ctx context.Context, inv *Invocation, next Handler) (interface{}, error) {
		ec := FromContext(ctx)
		if ec == nil {
			return nil, exception.NewEngineError(module, exception.KindInternal, "no execution context in chain", nil, false)
		}
		if ec.transaction != nil {
			return next(ctx)
		}

		var opts []*sql.TxOptions
		if inv.Config.TxOptions != nil {
			opts = append(opts, inv.Config.TxOptions)
		}
		t, err := tm.Begin(ctx, opts...)
		if err != nil {
			return nil, exception.NewTransactionError(module, fmt.Sprintf("failed to begin transaction for %s", inv.Name), err)
		}
		ec.transaction = t
		ctx = tx.NewContext(ctx, t)
		ec.ctx = ctx

		result, err := next(ctx)
		if err == nil && ec.IsRollbackOnly() {
			err = exception.NewTransactionError(module, fmt.Sprintf("%s completed but a nested command failed; transaction rolled back", inv.Name), ec.rollback)
		}
		if err == nil {
			if ferr := ec.flush(ctx); ferr != nil {
				err = exception.NewTransactionError(module, "failed to flush pending writes", ferr)
			}
		}

		if err != nil {
			if rerr := tm.Rollback(t); rerr != nil {
				logger.Errorf("%s: rollback failed (original error kept): %v", inv.Name, rerr)
			}
			ec.fireAfterRollback(err)
			return nil, err
		}

		if cerr := tm.Commit(t); cerr != nil {
			err = exception.NewTransactionError(module, fmt.Sprintf("failed to commit transaction for %s", inv.Name), cerr)
			if exception.IsOptimisticLockingFailure(cerr) {
				err = exception.NewOptimisticLockingFailureException(module, "conflict detected at commit", cerr)
			}
			ec.fireAfterRollback(err)
			return nil, err
		}
		ec.fireAfterCommit()
		return result, nil
	}
}
