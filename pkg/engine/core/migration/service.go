package migration

import (
	"context"

	"github.com/tigerroll/caseflow/pkg/engine/core/caseinstance"
	"github.com/tigerroll/caseflow/pkg/engine/core/command"
	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
)

// Service is the caller-facing API of the engine core. Every method is one dispatch.
type Service struct {
	executor *command.CommandExecutor
	rt       *Runtime
	starter  caseinstance.Starter
}

// NewService creates a Service. starter may be nil when case instances are not started through it.
func NewService(executor *command.CommandExecutor, rt *Runtime, starter caseinstance.Starter) *Service {
	return &Service{executor: executor, rt: rt, starter: starter}
}

// SubmitMigration starts a validation run of doc over the instances chosen by
// selector and returns the parent batch id.
func (s *Service) SubmitMigration(ctx context.Context, doc model.MigrationDocument, selector InstanceSelector) (string, error) {
	return command.Execute(ctx, s.executor, NewSubmitMigrationValidationCmd(s.rt, doc, selector))
}

// GetValidationResult returns the report of a validation run.
func (s *Service) GetValidationResult(ctx context.Context, batchID string) (model.ValidationReport, error) {
	return command.Execute(ctx, s.executor, NewGetMigrationValidationResultCmd(s.rt, batchID))
}

func (s *Service) GetBatch(ctx context.Context, batchID string) (*model.Batch, error) {
	return command.Execute(ctx, s.executor, NewGetBatchCmd(s.rt, batchID))
}

func (s *Service) GetBatchParts(ctx context.Context, batchID string, status model.BatchStatus) ([]*model.Batch, error) {
	return command.Execute(ctx, s.executor, NewGetBatchPartsCmd(s.rt, batchID, status))
}

// StartCaseInstance starts a case instance from b.
func (s *Service) StartCaseInstance(ctx context.Context, b *caseinstance.Builder) (*model.CaseInstance, error) {
	return command.Execute(ctx, s.executor, caseinstance.NewStartCaseInstanceCmd(b, s.starter))
}
