package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
)

func TestBatch_Lifecycle(t *testing.T) {
	parent := model.NewBatch(model.BatchTypeMigrationValidation)
	assert.True(t, parent.IsRoot())
	assert.Equal(t, model.BatchStatusCreated, parent.Status)
	assert.NotNil(t, parent.Children)

	child := model.NewChildBatch(parent, 1)
	assert.False(t, child.IsRoot())
	assert.Equal(t, parent.ID, child.ParentID)
	assert.Equal(t, 1, child.ChildOrder)
	assert.NotEqual(t, parent.ID, child.ID)

	require.NoError(t, child.MarkInProgress())
	require.NoError(t, child.MarkInProgress(), "repeated start is a no-op")
	assert.Nil(t, child.CompleteTime)

	require.NoError(t, child.Complete(model.StringPtr(`{"processInstanceId":"pi-1"}`)))
	assert.Equal(t, model.BatchStatusCompleted, child.Status)
	assert.True(t, child.HasResultPayload())
	assert.NotNil(t, child.CompleteTime)
	assert.True(t, child.Status.IsTerminal())

	assert.Error(t, child.Fail(nil), "a terminal batch stays terminal")
	assert.Error(t, child.MarkInProgress())
}

func TestBatch_FailWithoutStart(t *testing.T) {
	b := model.NewBatch("t")
	require.NoError(t, b.Fail(model.StringPtr("{}")))
	assert.Equal(t, model.BatchStatusFailed, b.Status)
}

func TestBatch_CloneIsDeep(t *testing.T) {
	b := model.NewBatch("t")
	b.Children = []string{"a"}
	require.NoError(t, b.Complete(model.StringPtr("x")))

	c := b.Clone()
	c.Children[0] = "b"
	*c.ResultPayload = "y"
	*c.CompleteTime = c.CompleteTime.Add(1)

	assert.Equal(t, "a", b.Children[0])
	assert.Equal(t, "x", *b.ResultPayload)
	assert.NotEqual(t, *b.CompleteTime, *c.CompleteTime)
	assert.Nil(t, (*model.Batch)(nil).Clone())
}

func TestBatchStatus_IsValid(t *testing.T) {
	for _, s := range []model.BatchStatus{model.BatchStatusCreated, model.BatchStatusInProgress, model.BatchStatusCompleted, model.BatchStatusFailed} {
		assert.True(t, s.IsValid(), s.String())
	}
	assert.False(t, model.BatchStatus("PAUSED").IsValid())
	assert.False(t, model.BatchStatusInProgress.IsTerminal())
}

func TestMigrationDocument_Target(t *testing.T) {
	assert.Equal(t, "claim:3", model.MigrationDocument{TargetDefinitionID: "claim:3", TargetDefinitionKey: "x"}.Target())
	assert.Equal(t, "claim:2", model.MigrationDocument{TargetDefinitionKey: "claim", TargetVersion: 2}.Target())
	assert.Equal(t, "claim", model.MigrationDocument{TargetDefinitionKey: "claim"}.Target())
}

func TestValidationReport(t *testing.T) {
	notReady := model.NewNotReadyReport("b1")
	assert.False(t, notReady.Ready)
	assert.Nil(t, notReady.Results)

	ready := model.NewReadyReport("b1", nil)
	assert.True(t, ready.Ready)
	assert.NotNil(t, ready.Results)
	assert.Empty(t, ready.Results)

	assert.True(t, model.ValidationResult{}.IsEmpty())
	assert.False(t, model.ValidationResult{Messages: []string{"m"}}.IsEmpty())
}
