package migration

import (
	"github.com/tigerroll/caseflow/pkg/engine/core/command"
	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/core/job"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/serialization"
)

// SubmitMigrationValidationCmd creates a validation run and returns the parent batch id.
type SubmitMigrationValidationCmd struct {
	Document model.MigrationDocument
	Selector InstanceSelector

	rt *Runtime
}

// NewSubmitMigrationValidationCmd creates the command.
func NewSubmitMigrationValidationCmd(rt *Runtime, doc model.MigrationDocument, selector InstanceSelector) *SubmitMigrationValidationCmd {
	return &SubmitMigrationValidationCmd{Document: doc, Selector: selector, rt: rt}
}

// Execute writes the parent and its children and schedules one job per child.
// Jobs reach the scheduler only after the transaction commits.
func (c *SubmitMigrationValidationCmd) Execute(ec *command.ExecutionContext) (string, error) {
	const op = "SubmitMigrationValidationCmd"

	if c.Document.SourceDefinitionID == "" {
		return "", exception.NewInvalidArgumentError(op, "source definition id is required")
	}
	if c.Document.TargetDefinitionID == "" && c.Document.TargetDefinitionKey == "" {
		return "", exception.NewInvalidArgumentError(op, "target definition id or key is required")
	}
	if c.Selector == nil {
		return "", exception.NewInvalidArgumentError(op, "instance selector is required")
	}

	ctx := ec.Context()
	document, err := serialization.MarshalMigrationDocument(c.Document)
	if err != nil {
		return "", err
	}

	parent := model.NewBatch(c.rt.BatchType)
	parent.SearchKey = c.Document.SourceDefinitionID
	parent.SearchKey2 = c.Document.Target()
	parent.Document = document

	messages, err := c.rt.Validator.ValidateDefinitions(ctx, c.Document)
	if err != nil {
		return "", exception.NewEngineError(op, exception.KindInternal, "definition validation failed", err, exception.IsTemporary(err))
	}
	if len(messages) > 0 {
		payload, err := serialization.EncodeValidationResult(model.ValidationResult{Messages: messages})
		if err != nil {
			return "", err
		}
		if err := parent.Complete(&payload); err != nil {
			return "", err
		}
		if err := c.rt.Repository.SaveBatch(ctx, parent); err != nil {
			return "", err
		}
		logger.Infof("Migration validation %s rejected at definition level with %d message(s).", parent.ID, len(messages))
		c.notifySubmitted(ec, parent, 0)
		return parent.ID, nil
	}

	instanceIDs, err := c.Selector.SelectInstances(ctx, c.Document)
	if err != nil {
		return "", exception.NewEngineError(op, exception.KindInternal, "instance selection failed", err, exception.IsTemporary(err))
	}

	if len(instanceIDs) == 0 {
		if err := parent.Complete(nil); err != nil {
			return "", err
		}
		if err := c.rt.Repository.SaveBatch(ctx, parent); err != nil {
			return "", err
		}
		logger.Infof("Migration validation %s has no instances to validate.", parent.ID)
		c.notifySubmitted(ec, parent, 0)
		return parent.ID, nil
	}

	children := make([]*model.Batch, len(instanceIDs))
	parent.Children = make([]string, len(instanceIDs))
	for i, instanceID := range instanceIDs {
		child := model.NewChildBatch(parent, i)
		child.SearchKey2 = instanceID
		children[i] = child
		parent.Children[i] = child.ID
	}

	if err := c.rt.Repository.SaveBatch(ctx, parent); err != nil {
		return "", err
	}

	session, err := job.SessionFrom(ec)
	if err != nil {
		return "", err
	}
	for _, child := range children {
		if err := c.rt.Repository.SaveBatch(ctx, child); err != nil {
			return "", err
		}
		session.Schedule(job.NewJob(ValidationHandlerType, child.ID))
	}

	logger.Infof("Submitted migration validation %s (%s -> %s) with %d child batch(es).",
		parent.ID, c.Document.SourceDefinitionID, c.Document.Target(), len(children))
	c.notifySubmitted(ec, parent, len(children))
	return parent.ID, nil
}

func (c *SubmitMigrationValidationCmd) notifySubmitted(ec *command.ExecutionContext, parent *model.Batch, children int) {
	snapshot := parent.Clone()
	listener := c.rt.Listener
	ec.AddCloseListener(command.CloseListenerFuncs{
		OnCommit: func(ec *command.ExecutionContext) {
			listener.OnBatchSubmitted(ec.Context(), snapshot, children)
			if snapshot.Status == model.BatchStatusCompleted {
				listener.OnBatchCompleted(ec.Context(), snapshot)
			}
		},
	})
}
