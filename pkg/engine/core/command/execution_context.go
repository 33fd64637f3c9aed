package command

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/caseflow/pkg/engine/core/tx"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// Resource is a transactional handle owned by an ExecutionContext, such as a
// session or a write-behind cache.
type Resource interface {
	// Flush writes pending state. It is called before commit, in creation order.
	Flush(ctx context.Context) error
	// Close releases the resource. It is called exactly once, on the outermost exit.
	Close() error
}

// ResourceFactory creates a Resource for a new ExecutionContext.
type ResourceFactory func(ec *ExecutionContext) (Resource, error)

// ResourceRegistration binds a resource kind to its factory. Registrations are
// collected by Fx through the "command_resources" group.
type ResourceRegistration struct {
	Kind    string
	Factory ResourceFactory
}

// CloseListener is notified when the outermost dispatch finishes its transaction.
type CloseListener interface {
	AfterCommit(ec *ExecutionContext)
	AfterRollback(ec *ExecutionContext, cause error)
}

// CloseListenerFuncs adapts optional functions to CloseListener.
type CloseListenerFuncs struct {
	OnCommit   func(ec *ExecutionContext)
	OnRollback func(ec *ExecutionContext, cause error)
}

func (f CloseListenerFuncs) AfterCommit(ec *ExecutionContext) {
	if f.OnCommit != nil {
		f.OnCommit(ec)
	}
}

func (f CloseListenerFuncs) AfterRollback(ec *ExecutionContext, cause error) {
	if f.OnRollback != nil {
		f.OnRollback(ec, cause)
	}
}

// ExecutionContext is the unit of work of one outermost dispatch.
//
// It is confined to the goroutine running the dispatch and is not safe for
// concurrent use. Commands must not keep it after Execute returns.
type ExecutionContext struct {
	ctx         context.Context
	factories   map[string]ResourceFactory
	resources   map[string]Resource
	created     []string
	listeners   []CloseListener
	attributes  map[string]interface{}
	transaction tx.Tx
	rollback    error
	closed      bool
}

func newExecutionContext(ctx context.Context, factories map[string]ResourceFactory) *ExecutionContext {
	return &ExecutionContext{
		ctx:        ctx,
		factories:  factories,
		resources:  make(map[string]Resource),
		attributes: make(map[string]interface{}),
	}
}

// Context returns the context of the dispatch. It carries this ExecutionContext
// and the active transaction; pass it to repositories and nested dispatches.
func (ec *ExecutionContext) Context() context.Context {
	return ec.ctx
}

// Tx returns the active transaction.
func (ec *ExecutionContext) Tx() (tx.Tx, bool) {
	return ec.transaction, ec.transaction != nil
}

// Resource returns the resource of the given kind, creating it on first access.
func (ec *ExecutionContext) Resource(kind string) (Resource, error) {
	if ec.closed {
		return nil, exception.NewEngineErrorf("ExecutionContext", exception.KindInternal, "resource '%s' requested from a closed execution context", kind)
	}
	if r, ok := ec.resources[kind]; ok {
		return r, nil
	}
	factory, ok := ec.factories[kind]
	if !ok {
		return nil, exception.NewInvalidArgumentError("ExecutionContext", fmt.Sprintf("no resource factory registered for kind '%s'", kind))
	}
	r, err := factory(ec)
	if err != nil {
		return nil, exception.NewEngineError("ExecutionContext", exception.KindInternal, fmt.Sprintf("failed to create resource '%s'", kind), err, false)
	}
	ec.resources[kind] = r
	ec.created = append(ec.created, kind)
	logger.Debugf("ExecutionContext: created resource '%s'.", kind)
	return r, nil
}

// ResourceAs returns the resource of the given kind as R.
func ResourceAs[R Resource](ec *ExecutionContext, kind string) (R, error) {
	var zero R
	r, err := ec.Resource(kind)
	if err != nil {
		return zero, err
	}
	typed, ok := r.(R)
	if !ok {
		return zero, exception.NewEngineErrorf("ExecutionContext", exception.KindInternal, "resource '%s' has type %T", kind, r)
	}
	return typed, nil
}

// AddCloseListener registers l for the end of the outermost transaction.
func (ec *ExecutionContext) AddCloseListener(l CloseListener) {
	ec.listeners = append(ec.listeners, l)
}

// SetRollbackOnly forces the outermost transaction to roll back.
// The first cause is kept.
func (ec *ExecutionContext) SetRollbackOnly(cause error) {
	if ec.rollback == nil {
		ec.rollback = cause
	}
}

// IsRollbackOnly reports whether SetRollbackOnly was called.
func (ec *ExecutionContext) IsRollbackOnly() bool {
	return ec.rollback != nil
}

// Attribute returns a value stored with SetAttribute.
func (ec *ExecutionContext) Attribute(key string) (interface{}, bool) {
	v, ok := ec.attributes[key]
	return v, ok
}

// SetAttribute stores a value for the lifetime of the context.
func (ec *ExecutionContext) SetAttribute(key string, value interface{}) {
	ec.attributes[key] = value
}

// flush flushes every created resource in creation order and stops at the first error.
func (ec *ExecutionContext) flush(ctx context.Context) error {
	for _, kind := range ec.created {
		if err := ec.resources[kind].Flush(ctx); err != nil {
			return fmt.Errorf("flush of resource '%s' failed: %w", kind, err)
		}
	}
	return nil
}

func (ec *ExecutionContext) fireAfterCommit() {
	for _, l := range ec.listeners {
		l.AfterCommit(ec)
	}
}

func (ec *ExecutionContext) fireAfterRollback(cause error) {
	for _, l := range ec.listeners {
		l.AfterRollback(ec, cause)
	}
}

// close releases every resource in reverse creation order. Errors are logged
// and swallowed so that they never mask the outcome of the command.
func (ec *ExecutionContext) close() {
	if ec.closed {
		return
	}
	ec.closed = true

	var result *multierror.Error
	for i := len(ec.created) - 1; i >= 0; i-- {
		kind := ec.created[i]
		if err := ec.resources[kind].Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("resource '%s': %w", kind, err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		logger.Errorf("ExecutionContext: failed to close resources: %v", err)
	}
}

type executionContextKey struct{}

func withExecutionContext(ctx context.Context, ec *ExecutionContext) context.Context {
	return context.WithValue(ctx, executionContextKey{}, ec)
}

// FromContext returns the ExecutionContext active in ctx, or nil.
func FromContext(ctx context.Context) *ExecutionContext {
	ec, _ := ctx.Value(executionContextKey{}).(*ExecutionContext)
	return ec
}
