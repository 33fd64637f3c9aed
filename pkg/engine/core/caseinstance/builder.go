// Package caseinstance holds the command that starts case instances and the
// builder describing what to start. Instantiation itself is delegated to a
// Starter supplied by the case runtime.
package caseinstance

import (
	"context"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
)

// Builder carries what is needed to start one case instance.
type Builder struct {
	caseDefinitionID  string
	caseDefinitionKey string
	businessKey       string
	name              string
	tenantID          string
	variables         map[string]interface{}
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{variables: make(map[string]interface{})}
}

func (b *Builder) CaseDefinitionID(id string) *Builder {
	b.caseDefinitionID = id
	return b
}

func (b *Builder) CaseDefinitionKey(key string) *Builder {
	b.caseDefinitionKey = key
	return b
}

func (b *Builder) BusinessKey(key string) *Builder {
	b.businessKey = key
	return b
}

func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

func (b *Builder) TenantID(tenantID string) *Builder {
	b.tenantID = tenantID
	return b
}

// Variable sets one start variable.
func (b *Builder) Variable(name string, value interface{}) *Builder {
	b.variables[name] = value
	return b
}

// Variables merges vars into the start variables.
func (b *Builder) Variables(vars map[string]interface{}) *Builder {
	for k, v := range vars {
		b.variables[k] = v
	}
	return b
}

func (b *Builder) GetCaseDefinitionID() string  { return b.caseDefinitionID }
func (b *Builder) GetCaseDefinitionKey() string { return b.caseDefinitionKey }
func (b *Builder) GetBusinessKey() string       { return b.businessKey }
func (b *Builder) GetName() string              { return b.name }
func (b *Builder) GetTenantID() string          { return b.tenantID }

// GetVariables returns a copy of the start variables.
func (b *Builder) GetVariables() map[string]interface{} {
	vars := make(map[string]interface{}, len(b.variables))
	for k, v := range b.variables {
		vars[k] = v
	}
	return vars
}

// Starter creates a case instance from a builder. It is implemented by the
// case runtime and runs inside the caller's transaction (ctx carries it).
type Starter interface {
	Start(ctx context.Context, b *Builder) (*model.CaseInstance, error)
}
