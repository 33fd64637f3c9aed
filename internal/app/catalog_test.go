package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/caseflow/internal/app"
	"github.com/tigerroll/caseflow/pkg/engine/component/modelimport"
	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
)

const testDefinitions = `
definitions:
  - kind: case
    key: claim
    version: 1
    process_refs: [claim-process]
  - kind: process
    key: claim-process
    id: claim-process:1
    version: 1
  - kind: process
    key: claim-process
    id: claim-process:2
    old_id: legacy-claim
    version: 2
  - kind: process
    key: payout
    id: payout:1
    version: 1
`

func TestLoadCatalog_ResolvesForwardReferences(t *testing.T) {
	c, err := app.LoadCatalog(app.DefinitionsYAML(testDefinitions))
	require.NoError(t, err)

	claim, ok := c.Latest("claim")
	require.True(t, ok)
	assert.Equal(t, "claim:1", claim.ID)
	assert.Equal(t, []string{"claim-process:1"}, c.Links(claim.ID))

	latest, ok := c.Latest("claim-process")
	require.True(t, ok)
	assert.Equal(t, 2, latest.Version)

	v1, ok := c.Version("claim-process", 1)
	require.True(t, ok)
	assert.Equal(t, "claim-process:1", v1.ID)
}

func TestCatalog_ImportFailsOnUnresolvedReference(t *testing.T) {
	c := app.NewCatalog()
	err := c.Import([]app.Definition{
		{Kind: modelimport.KindCase, Key: "claim", ProcessRefs: []string{"missing"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolved process references: missing")
}

func TestCatalog_ImportRejectsEmptyKey(t *testing.T) {
	c := app.NewCatalog()
	err := c.Import([]app.Definition{{Kind: modelimport.KindProcess, ID: "x"}})
	assert.Error(t, err)
	_, ok := c.Get("x")
	assert.False(t, ok)
}

func TestLoadCatalog_EmptyAndMalformed(t *testing.T) {
	c, err := app.LoadCatalog(nil)
	require.NoError(t, err)
	_, ok := c.Latest("claim")
	assert.False(t, ok)

	_, err = app.LoadCatalog(app.DefinitionsYAML("definitions: [unclosed"))
	assert.Error(t, err)
}

func TestCatalog_ResolveTarget(t *testing.T) {
	c, err := app.LoadCatalog(app.DefinitionsYAML(testDefinitions))
	require.NoError(t, err)

	byID, ok := c.ResolveTarget(model.MigrationDocument{TargetDefinitionID: "claim-process:1"})
	require.True(t, ok)
	assert.Equal(t, 1, byID.Version)

	byKey, ok := c.ResolveTarget(model.MigrationDocument{TargetDefinitionKey: "claim-process"})
	require.True(t, ok)
	assert.Equal(t, 2, byKey.Version)

	_, ok = c.ResolveTarget(model.MigrationDocument{TargetDefinitionKey: "claim-process", TargetVersion: 9})
	assert.False(t, ok)
}
