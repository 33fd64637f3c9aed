package migration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/core/migration"
	"github.com/tigerroll/caseflow/pkg/engine/test"
)

func TestAggregateValidationResults_OwnPayloadOnly(t *testing.T) {
	parent, _ := test.NewTestParentBatch(0)
	parent.ResultPayload = test.ResultPayload("p1", "m1", "m2")

	results := migration.AggregateValidationResults(parent, nil)
	assert.Equal(t, []model.ValidationResult{{ProcessInstanceID: "p1", Messages: []string{"m1", "m2"}}}, results)
}

func TestAggregateValidationResults_NoPayloads(t *testing.T) {
	parent, _ := test.NewTestParentBatch(0)
	results := migration.AggregateValidationResults(parent, nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestAggregateValidationResults_ChildrenInParentOrder(t *testing.T) {
	parent, children := test.NewTestParentBatch(3)
	children[0].ResultPayload = test.ResultPayload("pi-1", "a")
	children[1].ResultPayload = model.StringPtr("{not json")
	children[2].ResultPayload = test.ResultPayload("pi-3", "c")

	// Repository order must not matter.
	shuffled := []*model.Batch{children[2], children[0], children[1]}
	results := migration.AggregateValidationResults(parent, shuffled)

	assert.Equal(t, []model.ValidationResult{
		{ProcessInstanceID: "pi-1", Messages: []string{"a"}},
		{ProcessInstanceID: "pi-3", Messages: []string{"c"}},
	}, results)
}

func TestAggregateValidationResults_SkipsNullEmptyAndMissing(t *testing.T) {
	parent, children := test.NewTestParentBatch(4)
	parent.ResultPayload = test.ResultPayload("", "definition message")
	children[0].ResultPayload = nil
	children[1].ResultPayload = model.StringPtr("{}")
	children[2].ResultPayload = test.ResultPayload("pi-3")
	// children[3] is not returned by the store.

	results := migration.AggregateValidationResults(parent, children[:3])

	assert.Equal(t, []model.ValidationResult{
		{Messages: []string{"definition message"}},
		{ProcessInstanceID: "pi-3", Messages: []string{}},
	}, results)
}

func TestAggregateValidationResults_KeepsMessagesWithoutInstance(t *testing.T) {
	parent, children := test.NewTestParentBatch(2)
	children[0].ResultPayload = model.StringPtr(`{"processInstanceId":null,"validationMessages":["x"]}`)
	children[1].ResultPayload = model.StringPtr(`{"processInstanceId":"p2","validationMessages":null}`)

	results := migration.AggregateValidationResults(parent, children)

	assert.Equal(t, []model.ValidationResult{
		{Messages: []string{"x"}},
		{ProcessInstanceID: "p2", Messages: []string{}},
	}, results)
}
