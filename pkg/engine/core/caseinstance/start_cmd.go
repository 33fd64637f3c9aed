package caseinstance

import (
	"github.com/tigerroll/caseflow/pkg/engine/core/command"
	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// StartCaseInstanceCmd starts a case instance through Starter.
type StartCaseInstanceCmd struct {
	Builder *Builder
	Starter Starter
}

// NewStartCaseInstanceCmd creates the command.
func NewStartCaseInstanceCmd(b *Builder, starter Starter) *StartCaseInstanceCmd {
	return &StartCaseInstanceCmd{Builder: b, Starter: starter}
}

// Execute validates the builder before touching ec, then delegates to Starter.
// The instance becomes visible to other dispatches when the enclosing
// transaction commits.
func (c *StartCaseInstanceCmd) Execute(ec *command.ExecutionContext) (*model.CaseInstance, error) {
	const op = "StartCaseInstanceCmd"

	if c.Builder == nil {
		return nil, exception.NewInvalidArgumentError(op, "Cannot start case instance: no case instance builder provided")
	}
	if c.Builder.GetCaseDefinitionID() == "" && c.Builder.GetCaseDefinitionKey() == "" {
		return nil, exception.NewInvalidArgumentError(op, "Cannot start case instance: case definition id or key is required")
	}
	if c.Starter == nil {
		return nil, exception.NewEngineError(op, exception.KindInternal, "no case instance starter configured", nil, false)
	}

	instance, err := c.Starter.Start(ec.Context(), c.Builder)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, exception.NewEngineError(op, exception.KindInternal, "case instance starter returned no instance", nil, false)
	}
	logger.Debugf("Started case instance %s (definition: %s%s).", instance.ID, instance.CaseDefinitionID, instance.CaseDefinitionKey)
	return instance, nil
}
