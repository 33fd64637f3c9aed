package sql_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gormadapter "github.com/tigerroll/caseflow/pkg/engine/adapter/database/gorm"
	"github.com/tigerroll/caseflow/pkg/engine/adapter/database/gorm/sqlite"
	"github.com/tigerroll/caseflow/pkg/engine/component/schema"
	"github.com/tigerroll/caseflow/pkg/engine/core/adapter"
	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	repository "github.com/tigerroll/caseflow/pkg/engine/core/domain/repository"
	tx "github.com/tigerroll/caseflow/pkg/engine/core/tx"
	sqlRepo "github.com/tigerroll/caseflow/pkg/engine/infrastructure/repository/sql"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
	"github.com/tigerroll/caseflow/pkg/engine/test"
)

// setupSQLite opens a migrated SQLite database in a temporary directory.
func setupSQLite(t *testing.T) (*sqlRepo.SQLBatchRepository, tx.TransactionManager) {
	cfg := config.NewConfig()
	cfg.Caseflow.AdapterConfigs["database"] = map[string]interface{}{
		"metadata": map[string]interface{}{
			"type":     "sqlite",
			"database": filepath.Join(t.TempDir(), "caseflow.db"),
		},
	}

	resolver := gormadapter.NewGormDBConnectionResolver(gormadapter.ResolverParams{
		DBProviders: []adapter.DBProvider{sqlite.NewProvider(cfg)},
		Cfg:         cfg,
	})
	t.Cleanup(func() { _ = resolver.CloseAll() })

	ctx := context.Background()
	conn, err := resolver.ResolveDBConnection(ctx, "metadata")
	require.NoError(t, err)
	require.NoError(t, schema.NewMigrator(conn).Up(ctx))
	// A second run finds nothing to apply.
	require.NoError(t, schema.NewMigrator(conn).Up(ctx))

	return sqlRepo.NewSQLBatchRepository(resolver, "metadata"), gormadapter.NewGormTransactionManager(resolver, "metadata")
}

// inTx runs fn in a transaction that commits when fn succeeds.
func inTx(t *testing.T, m tx.TransactionManager, fn func(ctx context.Context) error) error {
	txn, err := m.Begin(context.Background())
	require.NoError(t, err)
	if err := fn(tx.NewContext(context.Background(), txn)); err != nil {
		require.NoError(t, m.Rollback(txn))
		return err
	}
	return m.Commit(txn)
}

func TestSQLiteBatchRepository_RoundTrip(t *testing.T) {
	repo, txManager := setupSQLite(t)
	parent, children := test.NewTestParentBatch(3)
	parent.Document = `{"sourceDefinitionId":"source:1"}`

	require.NoError(t, inTx(t, txManager, func(ctx context.Context) error {
		if err := repo.SaveBatch(ctx, parent); err != nil {
			return err
		}
		// Children are stored in reverse to show that reads order by position.
		for i := len(children) - 1; i >= 0; i-- {
			if err := repo.SaveBatch(ctx, children[i]); err != nil {
				return err
			}
		}
		return nil
	}))

	ctx := context.Background()
	got, err := repo.FindBatchByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, parent.Children, got.Children)
	assert.Equal(t, parent.Document, got.Document)
	assert.True(t, got.IsRoot())

	found, err := repo.FindChildBatches(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, found, 3)
	for i, child := range found {
		assert.Equal(t, children[i].ID, child.ID)
		assert.Equal(t, i, child.ChildOrder)
	}

	_, err = repo.FindBatchByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrBatchNotFound)
}

func TestSQLiteBatchRepository_CompleteAndConflict(t *testing.T) {
	repo, txManager := setupSQLite(t)
	_, children := test.NewTestParentBatch(1)
	child := children[0]
	require.NoError(t, inTx(t, txManager, func(ctx context.Context) error { return repo.SaveBatch(ctx, child) }))

	stale := child.Clone()
	require.NoError(t, inTx(t, txManager, func(ctx context.Context) error {
		if err := child.Complete(test.ResultPayload("pi-1")); err != nil {
			return err
		}
		return repo.UpdateBatch(ctx, child)
	}))

	got, err := repo.FindBatchByID(context.Background(), child.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, got.Status)
	require.NotNil(t, got.ResultPayload)
	assert.JSONEq(t, *test.ResultPayload("pi-1"), *got.ResultPayload)
	assert.NotNil(t, got.CompleteTime)
	assert.Equal(t, 1, got.Version)

	err = inTx(t, txManager, func(ctx context.Context) error {
		_ = stale.Fail(test.ResultPayload("pi-1", "late"))
		return repo.UpdateBatch(ctx, stale)
	})
	assert.True(t, exception.IsOptimisticLockingFailure(err))

	got, err = repo.FindBatchByID(context.Background(), child.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, got.Status)
}

func TestSQLiteBatchRepository_RollbackDiscardsWrites(t *testing.T) {
	repo, txManager := setupSQLite(t)
	b := model.NewBatch(model.BatchTypeMigrationValidation)

	err := inTx(t, txManager, func(ctx context.Context) error {
		if err := repo.SaveBatch(ctx, b); err != nil {
			return err
		}
		if _, err := repo.FindBatchByID(ctx, b.ID); err != nil {
			return err
		}
		return exception.NewInvalidArgumentError("test", "abort")
	})
	require.Error(t, err)

	_, err = repo.FindBatchByID(context.Background(), b.ID)
	assert.ErrorIs(t, err, repository.ErrBatchNotFound)
}
