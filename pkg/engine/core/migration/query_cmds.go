package migration

import (
	"github.com/tigerroll/caseflow/pkg/engine/core/command"
	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
)

// GetMigrationValidationResultCmd reports the results of a validation run.
//
// A missing batch is a KindNotFound error. A batch that has not completed
// yields a report with Ready false. A completed batch yields its aggregated
// results, possibly none.
type GetMigrationValidationResultCmd struct {
	BatchID string

	rt *Runtime
}

// NewGetMigrationValidationResultCmd creates the command.
func NewGetMigrationValidationResultCmd(rt *Runtime, batchID string) *GetMigrationValidationResultCmd {
	return &GetMigrationValidationResultCmd{BatchID: batchID, rt: rt}
}

func (c *GetMigrationValidationResultCmd) Execute(ec *command.ExecutionContext) (model.ValidationReport, error) {
	const op = "GetMigrationValidationResultCmd"

	batch, err := findBatch(ec, c.rt.Repository, op, c.BatchID)
	if err != nil {
		return model.ValidationReport{}, err
	}
	if batch.Status != model.BatchStatusCompleted {
		return model.NewNotReadyReport(batch.ID), nil
	}

	var children []*model.Batch
	if len(batch.Children) > 0 {
		children, err = c.rt.Repository.FindChildBatches(ec.Context(), batch.ID)
		if err != nil {
			return model.ValidationReport{}, err
		}
	}
	return model.NewReadyReport(batch.ID, AggregateValidationResults(batch, children)), nil
}

// GetBatchCmd loads one batch.
type GetBatchCmd struct {
	BatchID string

	rt *Runtime
}

// NewGetBatchCmd creates the command.
func NewGetBatchCmd(rt *Runtime, batchID string) *GetBatchCmd {
	return &GetBatchCmd{BatchID: batchID, rt: rt}
}

func (c *GetBatchCmd) Execute(ec *command.ExecutionContext) (*model.Batch, error) {
	return findBatch(ec, c.rt.Repository, "GetBatchCmd", c.BatchID)
}

// GetBatchPartsCmd lists the children of a batch in submission order,
// optionally restricted to one status.
type GetBatchPartsCmd struct {
	BatchID string
	// Status filters the children when non-empty.
	Status model.BatchStatus

	rt *Runtime
}

// NewGetBatchPartsCmd creates the command.
func NewGetBatchPartsCmd(rt *Runtime, batchID string, status model.BatchStatus) *GetBatchPartsCmd {
	return &GetBatchPartsCmd{BatchID: batchID, Status: status, rt: rt}
}

func (c *GetBatchPartsCmd) Execute(ec *command.ExecutionContext) ([]*model.Batch, error) {
	const op = "GetBatchPartsCmd"

	batch, err := findBatch(ec, c.rt.Repository, op, c.BatchID)
	if err != nil {
		return nil, err
	}
	children, err := c.rt.Repository.FindChildBatches(ec.Context(), batch.ID)
	if err != nil {
		return nil, err
	}
	parts := make([]*model.Batch, 0, len(children))
	for _, child := range children {
		if c.Status == "" || child.Status == c.Status {
			parts = append(parts, child)
		}
	}
	return parts, nil
}
