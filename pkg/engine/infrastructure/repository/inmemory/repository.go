// Package inmemory provides an in-memory Batch Store with transactional
// staging. It is intended for tests, demos and single-process deployments
// where batch records need not survive a restart.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	repository "github.com/tigerroll/caseflow/pkg/engine/core/domain/repository"
	"github.com/tigerroll/caseflow/pkg/engine/core/tx"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
)

// InMemoryBatchRepository is an in-memory implementation of repository.BatchRepository.
//
// Writes made with a context carrying one of its transactions are staged on
// the transaction and applied atomically on commit. Writes without a
// transaction are applied immediately.
type InMemoryBatchRepository struct {
	batches map[string]*model.Batch
	mu      sync.RWMutex
}

// NewInMemoryBatchRepository creates an empty repository.
func NewInMemoryBatchRepository() *InMemoryBatchRepository {
	return &InMemoryBatchRepository{batches: make(map[string]*model.Batch)}
}

// SaveBatch inserts a new batch. It fails if the id already exists.
func (r *InMemoryBatchRepository) SaveBatch(ctx context.Context, batch *model.Batch) error {
	const op = "InMemoryBatchRepository.SaveBatch"
	if t := r.txFrom(ctx); t != nil {
		return t.stageInsert(op, batch.Clone())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.batches[batch.ID]; exists {
		return exception.NewEngineErrorf(op, exception.KindConflict, "batch %s already exists", batch.ID)
	}
	r.batches[batch.ID] = batch.Clone()
	return nil
}

// UpdateBatch replaces a stored batch if its version matches batch.Version.
func (r *InMemoryBatchRepository) UpdateBatch(ctx context.Context, batch *model.Batch) error {
	const op = "InMemoryBatchRepository.UpdateBatch"
	if t := r.txFrom(ctx); t != nil {
		return t.stageUpdate(op, batch)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.batches[batch.ID]
	if !ok {
		return exception.NewNotFoundError(op, fmt.Sprintf("batch %s not found for update", batch.ID), repository.ErrBatchNotFound)
	}
	if stored.Version != batch.Version {
		return versionConflict(op, batch.ID, batch.Version)
	}
	batch.Version++
	r.batches[batch.ID] = batch.Clone()
	return nil
}

// FindBatchByID returns a copy of the batch, seeing writes staged by the
// transaction in ctx.
func (r *InMemoryBatchRepository) FindBatchByID(ctx context.Context, id string) (*model.Batch, error) {
	if t := r.txFrom(ctx); t != nil {
		if staged, ok := t.lookup(id); ok {
			return staged.Clone(), nil
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, repository.ErrBatchNotFound
	}
	return b.Clone(), nil
}

// FindChildBatches returns copies of the children of parentID ordered by ChildOrder.
func (r *InMemoryBatchRepository) FindChildBatches(ctx context.Context, parentID string) ([]*model.Batch, error) {
	found := make(map[string]*model.Batch)

	r.mu.RLock()
	for _, b := range r.batches {
		if b.ParentID == parentID {
			found[b.ID] = b
		}
	}
	r.mu.RUnlock()

	if t := r.txFrom(ctx); t != nil {
		for _, b := range t.stagedChildren(parentID) {
			found[b.ID] = b
		}
	}

	children := make([]*model.Batch, 0, len(found))
	for _, b := range found {
		children = append(children, b.Clone())
	}
	sort.Slice(children, func(i, j int) bool {
		return children[i].ChildOrder < children[j].ChildOrder
	})
	return children, nil
}

// Count returns the number of committed batches.
func (r *InMemoryBatchRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.batches)
}

// Close releases nothing; it exists for symmetry with the SQL store.
func (r *InMemoryBatchRepository) Close() error {
	return nil
}

// txFrom returns the transaction of this repository carried by ctx.
func (r *InMemoryBatchRepository) txFrom(ctx context.Context) *memTx {
	t, ok := tx.FromContext(ctx)
	if !ok {
		return nil
	}
	mt, ok := t.(*memTx)
	if !ok || mt.repo != r {
		return nil
	}
	return mt
}

func versionConflict(op, id string, version int) error {
	return exception.NewOptimisticLockingFailureException(op, fmt.Sprintf("batch %s with version %d not found for update", id, version), nil)
}

var _ repository.BatchRepository = (*InMemoryBatchRepository)(nil)
