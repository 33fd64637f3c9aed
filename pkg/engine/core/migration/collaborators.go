// Package migration implements migration validation runs as batches.
//
// A run is submitted as one parent batch fanned out into one child batch per
// selected process instance. Children are validated asynchronously by
// ValidationJobHandler; the parent completes once every child is terminal, and
// its report aggregates the parent's own result and the children's results.
package migration

import (
	"context"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	repository "github.com/tigerroll/caseflow/pkg/engine/core/domain/repository"
)

// InstanceSelector computes the process instances affected by a migration.
type InstanceSelector interface {
	SelectInstances(ctx context.Context, doc model.MigrationDocument) ([]string, error)
}

// StaticInstanceSelector selects a fixed list of instance ids.
type StaticInstanceSelector []string

// SelectInstances returns a copy of the list.
func (s StaticInstanceSelector) SelectInstances(ctx context.Context, doc model.MigrationDocument) ([]string, error) {
	return append([]string(nil), s...), nil
}

// InstanceSelectorFunc adapts a function to InstanceSelector.
type InstanceSelectorFunc func(ctx context.Context, doc model.MigrationDocument) ([]string, error)

func (f InstanceSelectorFunc) SelectInstances(ctx context.Context, doc model.MigrationDocument) ([]string, error) {
	return f(ctx, doc)
}

// Validator holds the migration validation logic, which lives outside the engine core.
type Validator interface {
	// ValidateDefinitions checks the source definition against the target as a
	// whole. Non-empty messages end the run without validating instances.
	ValidateDefinitions(ctx context.Context, doc model.MigrationDocument) ([]string, error)

	// ValidateInstance checks one process instance. An error means validation
	// itself could not run; findings are returned as messages.
	ValidateInstance(ctx context.Context, doc model.MigrationDocument, instanceID string) ([]string, error)
}

// BatchListener is notified of committed batch state changes.
type BatchListener interface {
	OnBatchSubmitted(ctx context.Context, parent *model.Batch, children int)
	OnChildCompleted(ctx context.Context, child *model.Batch)
	OnChildFailed(ctx context.Context, child *model.Batch, cause error)
	OnBatchCompleted(ctx context.Context, parent *model.Batch)
}

// BatchListeners fans notifications out to every listener in order.
type BatchListeners []BatchListener

func (ls BatchListeners) OnBatchSubmitted(ctx context.Context, parent *model.Batch, children int) {
	for _, l := range ls {
		l.OnBatchSubmitted(ctx, parent, children)
	}
}

func (ls BatchListeners) OnChildCompleted(ctx context.Context, child *model.Batch) {
	for _, l := range ls {
		l.OnChildCompleted(ctx, child)
	}
}

func (ls BatchListeners) OnChildFailed(ctx context.Context, child *model.Batch, cause error) {
	for _, l := range ls {
		l.OnChildFailed(ctx, child, cause)
	}
}

func (ls BatchListeners) OnBatchCompleted(ctx context.Context, parent *model.Batch) {
	for _, l := range ls {
		l.OnBatchCompleted(ctx, parent)
	}
}

var _ BatchListener = BatchListeners(nil)

// Runtime bundles the collaborators shared by the migration commands.
type Runtime struct {
	Repository repository.BatchRepository
	Validator  Validator
	Listener   BatchListener
	// BatchType is stored on every batch of a run.
	BatchType string
}

// NewRuntime creates a Runtime. A nil listener is replaced by an empty BatchListeners.
func NewRuntime(repo repository.BatchRepository, validator Validator, listener BatchListener, batchType string) *Runtime {
	if listener == nil {
		listener = BatchListeners(nil)
	}
	if batchType == "" {
		batchType = model.BatchTypeMigrationValidation
	}
	return &Runtime{Repository: repo, Validator: validator, Listener: listener, BatchType: batchType}
}
