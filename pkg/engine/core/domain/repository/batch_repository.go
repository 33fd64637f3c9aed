// Package repository declares the persistence ports of the engine.
package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
)

// ErrBatchNotFound is returned when a batch id does not exist.
var ErrBatchNotFound = errors.New("batch not found")

// BatchRepository is the Batch Store. It exclusively owns batch records.
//
// Writes participate in the transaction carried by the context (see tx.FromContext).
// Every read returns a fresh copy; callers never share record instances.
type BatchRepository interface {
	// SaveBatch inserts a new batch. A parent must be saved with its final Children list.
	SaveBatch(ctx context.Context, batch *model.Batch) error

	// UpdateBatch persists status, payload and timestamps using optimistic locking on
	// Version. On success batch.Version is incremented; on conflict it is left unchanged
	// and an exception.ErrOptimisticLockingFailure is returned.
	UpdateBatch(ctx context.Context, batch *model.Batch) error

	// FindBatchByID loads a batch with its Children ids in stored order.
	FindBatchByID(ctx context.Context, id string) (*model.Batch, error)

	// FindChildBatches loads the children of parentID ordered by ChildOrder.
	FindChildBatches(ctx context.Context, parentID string) ([]*model.Batch, error)
}
