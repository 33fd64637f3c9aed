package sql_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	repository "github.com/tigerroll/caseflow/pkg/engine/core/domain/repository"
	tx "github.com/tigerroll/caseflow/pkg/engine/core/tx"
	sqlRepo "github.com/tigerroll/caseflow/pkg/engine/infrastructure/repository/sql"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
	"github.com/tigerroll/caseflow/pkg/engine/test"
)

// newTxRepo returns a repository whose operations all run on a mocked
// transaction carried by the returned context.
func newTxRepo() (*sqlRepo.SQLBatchRepository, *test.MockTx, context.Context) {
	mockTx := new(test.MockTx)
	resolver := new(test.MockDBConnectionResolver)
	repo := sqlRepo.NewSQLBatchRepository(resolver, "metadata")
	return repo, mockTx, tx.NewContext(context.Background(), mockTx)
}

func TestSaveBatch_InsertsEntity(t *testing.T) {
	repo, mockTx, ctx := newTxRepo()
	parent, _ := test.NewTestParentBatch(2)

	mockTx.On("ExecuteUpdate", ctx, mock.MatchedBy(func(e *sqlRepo.BatchEntity) bool {
		return e.ID == parent.ID && e.Status == "CREATED" && len(e.Children) == 2 && e.SearchKey == "source:1"
	}), "CREATE", sqlRepo.BatchTableName, map[string]interface{}(nil)).Return(int64(1), nil)

	require.NoError(t, repo.SaveBatch(ctx, parent))
	mockTx.AssertExpectations(t)
}

func TestSaveBatch_WrapsFailure(t *testing.T) {
	repo, mockTx, ctx := newTxRepo()
	mockTx.On("ExecuteUpdate", ctx, mock.Anything, "CREATE", sqlRepo.BatchTableName, mock.Anything).
		Return(int64(0), errors.New("database is locked"))

	err := repo.SaveBatch(ctx, model.NewBatch("t"))
	require.Error(t, err)
	assert.True(t, exception.IsTemporary(err))
}

func TestUpdateBatch_OptimisticLocking(t *testing.T) {
	repo, mockTx, ctx := newTxRepo()
	b := model.NewBatch("t")
	b.Version = 3

	mockTx.On("ExecuteUpdate", ctx, mock.MatchedBy(func(e *sqlRepo.BatchEntity) bool { return e.Version == 4 }),
		"UPDATE", sqlRepo.BatchTableName, map[string]interface{}{"version": 3}).Return(int64(1), nil).Once()
	require.NoError(t, repo.UpdateBatch(ctx, b))
	assert.Equal(t, 4, b.Version)

	mockTx.On("ExecuteUpdate", ctx, mock.Anything, "UPDATE", sqlRepo.BatchTableName, map[string]interface{}{"version": 4}).
		Return(int64(0), nil).Once()
	err := repo.UpdateBatch(ctx, b)
	assert.True(t, exception.IsOptimisticLockingFailure(err))
	assert.Equal(t, 4, b.Version, "version is restored on conflict")

	mockTx.On("ExecuteUpdate", ctx, mock.Anything, "UPDATE", sqlRepo.BatchTableName, mock.Anything).
		Return(int64(0), errors.New("syntax error")).Once()
	err = repo.UpdateBatch(ctx, b)
	require.Error(t, err)
	assert.False(t, exception.IsOptimisticLockingFailure(err))
	assert.Equal(t, 4, b.Version)
}

func TestFindBatchByID(t *testing.T) {
	repo, mockTx, ctx := newTxRepo()
	payload := `{"processInstanceId":"pi-1"}`

	mockTx.On("ExecuteQueryAdvanced", ctx, mock.Anything, map[string]interface{}{"id": "b1"}, "", 1).
		Run(func(args mock.Arguments) {
			target := args.Get(1).(*[]sqlRepo.BatchEntity)
			*target = []sqlRepo.BatchEntity{{ID: "b1", Status: "COMPLETED", ParentID: "p1", ChildOrder: 2, ResultPayload: &payload, Version: 5}}
		}).Return(nil)

	b, err := repo.FindBatchByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, b.Status)
	assert.Equal(t, "p1", b.ParentID)
	assert.Equal(t, 2, b.ChildOrder)
	assert.Equal(t, 5, b.Version)
	assert.NotNil(t, b.Children)
	assert.Equal(t, payload, *b.ResultPayload)
}

func TestFindBatchByID_NotFound(t *testing.T) {
	repo, mockTx, ctx := newTxRepo()
	mockTx.On("ExecuteQueryAdvanced", ctx, mock.Anything, map[string]interface{}{"id": "missing"}, "", 1).Return(nil)

	_, err := repo.FindBatchByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrBatchNotFound)
}

func TestFindBatchByID_MissingTableIsNotFound(t *testing.T) {
	repo, mockTx, ctx := newTxRepo()
	tableErr := errors.New("no such table: act_batch")
	mockTx.On("ExecuteQueryAdvanced", ctx, mock.Anything, mock.Anything, "", 1).Return(tableErr)
	mockTx.On("IsTableNotExistError", tableErr).Return(true)

	_, err := repo.FindBatchByID(ctx, "b1")
	assert.ErrorIs(t, err, repository.ErrBatchNotFound)
}

func TestFindChildBatches_OrdersByChildOrder(t *testing.T) {
	repo, mockTx, ctx := newTxRepo()
	mockTx.On("ExecuteQueryAdvanced", ctx, mock.Anything, map[string]interface{}{"parent_id": "p1"}, "child_order ASC", 0).
		Run(func(args mock.Arguments) {
			target := args.Get(1).(*[]sqlRepo.BatchEntity)
			*target = []sqlRepo.BatchEntity{{ID: "c0", ParentID: "p1"}, {ID: "c1", ParentID: "p1", ChildOrder: 1}}
		}).Return(nil)

	children, err := repo.FindChildBatches(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "c0", children[0].ID)
	assert.Equal(t, "c1", children[1].ID)
}

func TestRepository_ResolverFailureIsTemporary(t *testing.T) {
	resolver := new(test.MockDBConnectionResolver)
	resolver.On("ResolveDBConnection", mock.Anything, "metadata").Return(nil, errors.New("connection refused"))
	repo := sqlRepo.NewSQLBatchRepository(resolver, "metadata")

	_, err := repo.FindBatchByID(context.Background(), "b1")
	require.Error(t, err)
	assert.True(t, exception.IsTemporary(err))
	resolver.AssertExpectations(t)
}
