package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/caseflow/internal/app"
	"github.com/tigerroll/caseflow/pkg/engine/core/caseinstance"
	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
)

func newTestCatalog(t *testing.T) *app.Catalog {
	t.Helper()
	c, err := app.LoadCatalog(app.DefinitionsYAML(testDefinitions))
	require.NoError(t, err)
	return c
}

func TestCatalogValidator_ValidateDefinitions(t *testing.T) {
	v := app.NewCatalogValidator(newTestCatalog(t))
	ctx := context.Background()

	msgs, err := v.ValidateDefinitions(ctx, model.MigrationDocument{
		SourceDefinitionID:  "claim-process:1",
		TargetDefinitionKey: "claim-process",
	})
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = v.ValidateDefinitions(ctx, model.MigrationDocument{
		SourceDefinitionID: "nope:1",
		TargetDefinitionID: "nope:2",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Source definition nope:1 not found", "Target definition nope:2 not found"}, msgs)

	msgs, err = v.ValidateDefinitions(ctx, model.MigrationDocument{
		SourceDefinitionID: "claim:1",
		TargetDefinitionID: "payout:1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Cannot migrate a case definition to a process definition",
		"Process model claim-process started by the source is not started by the target",
	}, msgs)
}

func TestCatalogValidator_ValidateInstance(t *testing.T) {
	v := app.NewCatalogValidator(newTestCatalog(t))
	doc := model.MigrationDocument{SourceDefinitionID: "claim-process:1", TargetDefinitionID: "claim-process:2"}

	msgs, err := v.ValidateInstance(context.Background(), doc, "pi-1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = v.ValidateInstance(context.Background(), doc, app.StaleInstancePrefix+"pi-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Instance stale-pi-2 has active elements not present in claim-process:2"}, msgs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = v.ValidateInstance(ctx, doc, "pi-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCatalogStarter_Start(t *testing.T) {
	s := app.NewCatalogStarter(newTestCatalog(t))
	ctx := context.Background()

	inst, err := s.Start(ctx, caseinstance.NewBuilder().CaseDefinitionKey("claim").BusinessKey("bk").Variable("a", 1))
	require.NoError(t, err)
	assert.Equal(t, "claim:1", inst.CaseDefinitionID)
	assert.Equal(t, "bk", inst.BusinessKey)
	assert.Equal(t, model.CaseInstanceStateActive, inst.State)
	assert.Equal(t, 1, inst.Variables["a"])
	assert.NotEmpty(t, inst.ID)

	_, err = s.Start(ctx, caseinstance.NewBuilder().CaseDefinitionID("missing:1"))
	assert.True(t, exception.IsKind(err, exception.KindNotFound))

	_, err = s.Start(ctx, caseinstance.NewBuilder().CaseDefinitionID("claim-process:1"))
	assert.True(t, exception.IsKind(err, exception.KindInvalidArgument))
}
