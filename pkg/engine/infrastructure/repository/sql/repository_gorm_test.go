package sql_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/caseflow/pkg/engine/adapter/database/config"
	gormadapter "github.com/tigerroll/caseflow/pkg/engine/adapter/database/gorm"
	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	repository "github.com/tigerroll/caseflow/pkg/engine/core/domain/repository"
	tx "github.com/tigerroll/caseflow/pkg/engine/core/tx"
	sqlRepo "github.com/tigerroll/caseflow/pkg/engine/infrastructure/repository/sql"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
	"github.com/tigerroll/caseflow/pkg/engine/test"
)

// setupGormMock wires the repository and a transaction manager onto a
// sqlmock-backed MySQL dialect.
func setupGormMock(t *testing.T) (sqlmock.Sqlmock, *sqlRepo.SQLBatchRepository, tx.TransactionManager) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	conn := gormadapter.NewGormDBAdapter(gormDB, dbconfig.DatabaseConfig{Type: "mysql"}, "metadata")
	resolver := test.NewSingleConnectionResolver(conn)
	return mock, sqlRepo.NewSQLBatchRepository(resolver, "metadata"), gormadapter.NewGormTransactionManager(resolver, "metadata")
}

func batchColumns() []string {
	return []string{"id", "type", "status", "parent_id", "child_order", "children", "search_key", "search_key2",
		"document", "result_payload", "create_time", "complete_time", "last_updated", "version"}
}

func TestGormBatchRepository_FindBatchByID(t *testing.T) {
	mock, repo, _ := setupGormMock(t)
	now := time.Now()

	rows := sqlmock.NewRows(batchColumns()).
		AddRow("p1", model.BatchTypeMigrationValidation, "IN_PROGRESS", "", 0, `["c0","c1"]`, "source:1", "target:2",
			`{"sourceDefinitionId":"source:1"}`, nil, now, nil, now, 1)
	mock.ExpectQuery("SELECT \\* FROM `act_batch` WHERE").WillReturnRows(rows)

	b, err := repo.FindBatchByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusInProgress, b.Status)
	assert.Equal(t, []string{"c0", "c1"}, b.Children)
	assert.Nil(t, b.ResultPayload)
	assert.Nil(t, b.CompleteTime)
	assert.Equal(t, 1, b.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormBatchRepository_FindBatchByID_NoRows(t *testing.T) {
	mock, repo, _ := setupGormMock(t)
	mock.ExpectQuery("SELECT \\* FROM `act_batch` WHERE").WillReturnRows(sqlmock.NewRows(batchColumns()))

	_, err := repo.FindBatchByID(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrBatchNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormBatchRepository_UpdateConflictInTransaction(t *testing.T) {
	mock, repo, txManager := setupGormMock(t)
	b := model.NewBatch(model.BatchTypeMigrationValidation)
	b.Version = 2

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `act_batch` SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	txn, err := txManager.Begin(context.Background())
	require.NoError(t, err)
	err = repo.UpdateBatch(tx.NewContext(context.Background(), txn), b)
	assert.True(t, exception.IsOptimisticLockingFailure(err))
	assert.Equal(t, 2, b.Version)
	require.NoError(t, txManager.Rollback(txn))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormBatchRepository_UpdateCommits(t *testing.T) {
	mock, repo, txManager := setupGormMock(t)
	b := model.NewBatch(model.BatchTypeMigrationValidation)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `act_batch` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	txn, err := txManager.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, repo.UpdateBatch(tx.NewContext(context.Background(), txn), b))
	require.NoError(t, txManager.Commit(txn))

	assert.Equal(t, 1, b.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
