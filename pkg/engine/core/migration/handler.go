package migration

import (
	"context"

	"github.com/tigerroll/caseflow/pkg/engine/core/command"
	"github.com/tigerroll/caseflow/pkg/engine/core/job"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// ValidationHandlerType is the handler reference of migration validation jobs.
const ValidationHandlerType = "migration-validation"

// ValidationJobHandler runs the validation of one child batch per job.
//
// Each terminal write is followed by a separate completion check of the
// parent, so the parent completes as soon as its last child is done.
type ValidationJobHandler struct {
	executor *command.CommandExecutor
	rt       *Runtime
}

// NewValidationJobHandler creates the handler.
func NewValidationJobHandler(executor *command.CommandExecutor, rt *Runtime) *ValidationJobHandler {
	return &ValidationJobHandler{executor: executor, rt: rt}
}

// Type returns ValidationHandlerType.
func (h *ValidationJobHandler) Type() string {
	return ValidationHandlerType
}

// Handle validates the child named by j.BatchID. Returned errors are retried
// by the scheduler when its policy allows.
func (h *ValidationJobHandler) Handle(ctx context.Context, j job.Job) error {
	child, err := command.Execute(ctx, h.executor, NewExecuteMigrationValidationCmd(h.rt, j.BatchID))
	if err != nil {
		if exception.IsTemporary(err) {
			logger.Warnf("Validation of child batch %s (attempt %d) failed transiently: %v", j.BatchID, j.Attempt, err)
		}
		return err
	}
	return h.completeParent(ctx, child.ParentID)
}

// OnExhausted records the failure on the child and re-checks the parent.
func (h *ValidationJobHandler) OnExhausted(ctx context.Context, j job.Job, cause error) error {
	child, err := command.Execute(ctx, h.executor, NewFailMigrationValidationCmd(h.rt, j.BatchID, cause))
	if err != nil {
		return err
	}
	if child == nil {
		return nil
	}
	return h.completeParent(ctx, child.ParentID)
}

func (h *ValidationJobHandler) completeParent(ctx context.Context, parentID string) error {
	if parentID == "" {
		return nil
	}
	_, err := command.Execute(ctx, h.executor, NewCompleteBatchIfReadyCmd(h.rt, parentID))
	return err
}

var _ job.Handler = (*ValidationJobHandler)(nil)
