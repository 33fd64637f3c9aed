package migration

import (
	"github.com/tigerroll/caseflow/pkg/engine/core/command"
	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// CompleteBatchIfReadyCmd completes a parent batch once all of its children
// are terminal. It returns the parent's status after the command.
//
// Concurrent workers may run it for the same parent; the update is optimistic,
// so the losers are retried by the executor and then find the parent completed.
type CompleteBatchIfReadyCmd struct {
	ParentBatchID string

	rt *Runtime
}

// NewCompleteBatchIfReadyCmd creates the command.
func NewCompleteBatchIfReadyCmd(rt *Runtime, parentBatchID string) *CompleteBatchIfReadyCmd {
	return &CompleteBatchIfReadyCmd{ParentBatchID: parentBatchID, rt: rt}
}

func (c *CompleteBatchIfReadyCmd) Execute(ec *command.ExecutionContext) (model.BatchStatus, error) {
	const op = "CompleteBatchIfReadyCmd"
	ctx := ec.Context()

	parent, err := findBatch(ec, c.rt.Repository, op, c.ParentBatchID)
	if err != nil {
		return "", err
	}
	if parent.Status.IsTerminal() {
		return parent.Status, nil
	}

	children, err := c.rt.Repository.FindChildBatches(ctx, parent.ID)
	if err != nil {
		return "", err
	}

	terminal := 0
	started := false
	for _, child := range children {
		if child.Status.IsTerminal() {
			terminal++
		}
		if child.Status != model.BatchStatusCreated {
			started = true
		}
	}

	switch {
	case terminal == len(parent.Children) && terminal == len(children):
		if err := parent.Complete(nil); err != nil {
			return "", exception.NewEngineError(op, exception.KindInternal, "cannot complete batch", err, false)
		}
	case started && parent.Status == model.BatchStatusCreated:
		if err := parent.MarkInProgress(); err != nil {
			return "", exception.NewEngineError(op, exception.KindInternal, "cannot start batch", err, false)
		}
	default:
		return parent.Status, nil
	}

	if err := c.rt.Repository.UpdateBatch(ctx, parent); err != nil {
		return "", err
	}

	if parent.Status == model.BatchStatusCompleted {
		snapshot := parent.Clone()
		listener := c.rt.Listener
		ec.AddCloseListener(command.CloseListenerFuncs{
			OnCommit: func(ec *command.ExecutionContext) { listener.OnBatchCompleted(ec.Context(), snapshot) },
		})
		logger.Infof("Migration validation %s completed (%d child batch(es)).", parent.ID, len(children))
	} else {
		logger.Debugf("Migration validation %s in progress (%d/%d child batch(es) done).", parent.ID, terminal, len(parent.Children))
	}
	return parent.Status, nil
}
