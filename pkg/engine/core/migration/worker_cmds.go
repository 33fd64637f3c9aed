package migration

import (
	"errors"
	"fmt"

	"github.com/tigerroll/caseflow/pkg/engine/core/command"
	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	repository "github.com/tigerroll/caseflow/pkg/engine/core/domain/repository"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/serialization"
)

// ExecuteMigrationValidationCmd validates the instance of one child batch and
// stores its result. It returns the child as persisted.
//
// A child that is already terminal is returned unchanged, so a redelivered job
// does no work.
type ExecuteMigrationValidationCmd struct {
	ChildBatchID string

	rt *Runtime
}

// NewExecuteMigrationValidationCmd creates the command.
func NewExecuteMigrationValidationCmd(rt *Runtime, childBatchID string) *ExecuteMigrationValidationCmd {
	return &ExecuteMigrationValidationCmd{ChildBatchID: childBatchID, rt: rt}
}

func (c *ExecuteMigrationValidationCmd) Execute(ec *command.ExecutionContext) (*model.Batch, error) {
	const op = "ExecuteMigrationValidationCmd"
	ctx := ec.Context()

	child, err := findBatch(ec, c.rt.Repository, op, c.ChildBatchID)
	if err != nil {
		return nil, err
	}
	if child.Status.IsTerminal() {
		logger.Debugf("Child batch %s is already %s; skipping.", child.ID, child.Status)
		return child, nil
	}
	if child.IsRoot() {
		return nil, exception.NewInvalidArgumentError(op, fmt.Sprintf("batch %s is not a child batch", child.ID))
	}

	parent, err := findBatch(ec, c.rt.Repository, op, child.ParentID)
	if err != nil {
		return nil, err
	}
	doc, err := serialization.UnmarshalMigrationDocument(parent.Document)
	if err != nil {
		return nil, err
	}

	// Claims the child: a concurrent delivery of the same job fails this update.
	if err := child.MarkInProgress(); err != nil {
		return nil, exception.NewEngineError(op, exception.KindInternal, "cannot start child batch", err, false)
	}
	if err := c.rt.Repository.UpdateBatch(ctx, child); err != nil {
		return nil, err
	}

	instanceID := child.SearchKey2
	messages, err := c.rt.Validator.ValidateInstance(ctx, doc, instanceID)
	if err != nil {
		if exception.IsTemporary(err) {
			return nil, exception.NewTemporaryError(op, fmt.Sprintf("validation of instance %s interrupted", instanceID), err)
		}
		return nil, exception.NewWorkerFailureError(op, fmt.Sprintf("validation of instance %s failed", instanceID), err)
	}

	payload, err := serialization.EncodeValidationResult(model.ValidationResult{ProcessInstanceID: instanceID, Messages: messages})
	if err != nil {
		return nil, err
	}
	if err := child.Complete(&payload); err != nil {
		return nil, exception.NewEngineError(op, exception.KindInternal, "cannot complete child batch", err, false)
	}
	if err := c.rt.Repository.UpdateBatch(ctx, child); err != nil {
		return nil, err
	}

	snapshot := child.Clone()
	listener := c.rt.Listener
	ec.AddCloseListener(command.CloseListenerFuncs{
		OnCommit: func(ec *command.ExecutionContext) { listener.OnChildCompleted(ec.Context(), snapshot) },
	})
	logger.Debugf("Child batch %s validated instance %s with %d message(s).", child.ID, instanceID, len(messages))
	return child, nil
}

// FailMigrationValidationCmd marks a child batch FAILED with a diagnostic
// payload naming the cause. It returns the child, or nil when it no longer exists.
type FailMigrationValidationCmd struct {
	ChildBatchID string
	Cause        error

	rt *Runtime
}

// NewFailMigrationValidationCmd creates the command.
func NewFailMigrationValidationCmd(rt *Runtime, childBatchID string, cause error) *FailMigrationValidationCmd {
	return &FailMigrationValidationCmd{ChildBatchID: childBatchID, Cause: cause, rt: rt}
}

func (c *FailMigrationValidationCmd) Execute(ec *command.ExecutionContext) (*model.Batch, error) {
	const op = "FailMigrationValidationCmd"
	ctx := ec.Context()

	child, err := c.rt.Repository.FindBatchByID(ctx, c.ChildBatchID)
	if errors.Is(err, repository.ErrBatchNotFound) {
		logger.Warnf("Child batch %s no longer exists; nothing to fail.", c.ChildBatchID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if child.Status.IsTerminal() {
		return child, nil
	}

	payload, err := serialization.EncodeValidationResult(model.ValidationResult{
		ProcessInstanceID: child.SearchKey2,
		Messages:          []string{FailureMessage(c.Cause)},
	})
	if err != nil {
		return nil, err
	}
	if err := child.Fail(&payload); err != nil {
		return nil, exception.NewEngineError(op, exception.KindInternal, "cannot fail child batch", err, false)
	}
	if err := c.rt.Repository.UpdateBatch(ctx, child); err != nil {
		return nil, err
	}

	snapshot := child.Clone()
	cause := c.Cause
	listener := c.rt.Listener
	ec.AddCloseListener(command.CloseListenerFuncs{
		OnCommit: func(ec *command.ExecutionContext) { listener.OnChildFailed(ec.Context(), snapshot, cause) },
	})
	logger.Warnf("Child batch %s (instance %s) failed: %v", child.ID, child.SearchKey2, c.Cause)
	return child, nil
}

// FailureMessage is the validation message stored for a failed child.
func FailureMessage(cause error) string {
	if cause == nil {
		return "Validation failed"
	}
	return "Validation failed: " + exception.ExtractErrorMessage(cause)
}

// findBatch loads id, turning a missing batch into a KindNotFound error.
func findBatch(ec *command.ExecutionContext, repo repository.BatchRepository, op, id string) (*model.Batch, error) {
	if id == "" {
		return nil, exception.NewInvalidArgumentError(op, "batch id is required")
	}
	b, err := repo.FindBatchByID(ec.Context(), id)
	if errors.Is(err, repository.ErrBatchNotFound) {
		return nil, exception.NewNotFoundError(op, fmt.Sprintf("batch %s does not exist", id), err)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
