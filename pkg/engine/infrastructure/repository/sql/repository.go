// Package sql implements the Batch Store on a relational database through
// the engine's DB adapter.
package sql

import (
	"context"
	"fmt"

	"github.com/tigerroll/caseflow/pkg/engine/core/adapter"
	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	repository "github.com/tigerroll/caseflow/pkg/engine/core/domain/repository"
	tx "github.com/tigerroll/caseflow/pkg/engine/core/tx"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
)

type tableChecker interface {
	IsTableNotExistError(err error) bool
}

// SQLBatchRepository implements repository.BatchRepository.
type SQLBatchRepository struct {
	dbResolver adapter.DBConnectionResolver
	// dbName is the connection holding the batch table, e.g. "metadata".
	dbName string
}

// NewSQLBatchRepository creates a repository over the connection dbName.
func NewSQLBatchRepository(dbResolver adapter.DBConnectionResolver, dbName string) *SQLBatchRepository {
	return &SQLBatchRepository{dbResolver: dbResolver, dbName: dbName}
}

func (r *SQLBatchRepository) getDBConnection(ctx context.Context) (adapter.DBConnection, error) {
	conn, err := r.dbResolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewEngineError("SQLBatchRepository", exception.KindInternal, fmt.Sprintf("Failed to resolve DB connection '%s'", r.dbName), err, true)
	}
	return conn, nil
}

// getTxExecutor returns the transaction carried by ctx, or the connection when there is none.
// Reads go through it too, so that a dispatch sees its own uncommitted writes.
func (r *SQLBatchRepository) getTxExecutor(ctx context.Context) (tx.TxExecutor, error) {
	if t, ok := tx.FromContext(ctx); ok {
		return t, nil
	}
	return r.getDBConnection(ctx)
}

func isTableMissing(executor tx.TxExecutor, err error) bool {
	checker, ok := executor.(tableChecker)
	return ok && checker.IsTableNotExistError(err)
}

func (r *SQLBatchRepository) SaveBatch(ctx context.Context, batch *model.Batch) error {
	const op = "SQLBatchRepository.SaveBatch"
	entity := fromDomainBatch(batch)

	executor, err := r.getTxExecutor(ctx)
	if err != nil {
		return err
	}
	if _, err := executor.ExecuteUpdate(ctx, entity, "CREATE", entity.TableName(), nil); err != nil {
		return exception.NewEngineError(op, exception.KindInternal, fmt.Sprintf("failed to save batch (ID: %s)", batch.ID), err, exception.IsTemporary(err))
	}
	return nil
}

func (r *SQLBatchRepository) UpdateBatch(ctx context.Context, batch *model.Batch) error {
	const op = "SQLBatchRepository.UpdateBatch"

	originalVersion := batch.Version
	batch.Version++
	entity := fromDomainBatch(batch)

	executor, err := r.getTxExecutor(ctx)
	if err != nil {
		batch.Version = originalVersion
		return err
	}
	rowsAffected, err := executor.ExecuteUpdate(
		ctx,
		entity,
		"UPDATE",
		entity.TableName(),
		map[string]interface{}{"version": originalVersion},
	)
	if err != nil {
		batch.Version = originalVersion
		return exception.NewEngineError(op, exception.KindInternal, fmt.Sprintf("failed to update batch (ID: %s)", batch.ID), err, exception.IsTemporary(err))
	}
	if rowsAffected == 0 {
		batch.Version = originalVersion
		return exception.NewOptimisticLockingFailureException("repository", fmt.Sprintf("batch (ID: %s) with version %d not found for update", batch.ID, originalVersion), nil)
	}
	return nil
}

func (r *SQLBatchRepository) FindBatchByID(ctx context.Context, id string) (*model.Batch, error) {
	const op = "SQLBatchRepository.FindBatchByID"

	executor, err := r.getTxExecutor(ctx)
	if err != nil {
		return nil, err
	}
	var entities []BatchEntity
	if err := executor.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"id": id}, "", 1); err != nil {
		if isTableMissing(executor, err) {
			return nil, repository.ErrBatchNotFound
		}
		return nil, exception.NewEngineError(op, exception.KindInternal, fmt.Sprintf("failed to find batch by ID: %s", id), err, exception.IsTemporary(err))
	}
	if len(entities) == 0 {
		return nil, repository.ErrBatchNotFound
	}
	return toDomainBatch(&entities[0]), nil
}

func (r *SQLBatchRepository) FindChildBatches(ctx context.Context, parentID string) ([]*model.Batch, error) {
	const op = "SQLBatchRepository.FindChildBatches"

	executor, err := r.getTxExecutor(ctx)
	if err != nil {
		return nil, err
	}
	var entities []BatchEntity
	if err := executor.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"parent_id": parentID}, "child_order ASC", 0); err != nil {
		if isTableMissing(executor, err) {
			return []*model.Batch{}, nil
		}
		return nil, exception.NewEngineError(op, exception.KindInternal, fmt.Sprintf("failed to find children of batch %s", parentID), err, exception.IsTemporary(err))
	}

	children := make([]*model.Batch, 0, len(entities))
	for i := range entities {
		children = append(children, toDomainBatch(&entities[i]))
	}
	return children, nil
}

var _ repository.BatchRepository = (*SQLBatchRepository)(nil)
