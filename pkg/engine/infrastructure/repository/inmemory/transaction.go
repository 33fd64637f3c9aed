package inmemory

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	repository "github.com/tigerroll/caseflow/pkg/engine/core/domain/repository"
	"github.com/tigerroll/caseflow/pkg/engine/core/tx"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// stagedWrite is one pending write of a transaction.
type stagedWrite struct {
	batch  *model.Batch
	insert bool
	// baseVersion is the committed version the write was made against.
	baseVersion int
}

// memTx buffers the writes of one dispatch against an InMemoryBatchRepository.
type memTx struct {
	repo     *InMemoryBatchRepository
	mu       sync.Mutex
	writes   map[string]*stagedWrite
	order    []string
	finished bool
}

func (t *memTx) stageInsert(op string, b *model.Batch) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.writes[b.ID]; exists {
		return exception.NewEngineErrorf(op, exception.KindConflict, "batch %s already exists", b.ID)
	}
	t.writes[b.ID] = &stagedWrite{batch: b, insert: true}
	t.order = append(t.order, b.ID)
	return nil
}

func (t *memTx) stageUpdate(op string, b *model.Batch) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if w, ok := t.writes[b.ID]; ok {
		if w.batch.Version != b.Version {
			return versionConflict(op, b.ID, b.Version)
		}
		b.Version++
		w.batch = b.Clone()
		return nil
	}

	t.repo.mu.RLock()
	stored, ok := t.repo.batches[b.ID]
	var storedVersion int
	if ok {
		storedVersion = stored.Version
	}
	t.repo.mu.RUnlock()

	if !ok {
		return exception.NewNotFoundError(op, fmt.Sprintf("batch %s not found for update", b.ID), repository.ErrBatchNotFound)
	}
	if storedVersion != b.Version {
		return versionConflict(op, b.ID, b.Version)
	}
	b.Version++
	t.writes[b.ID] = &stagedWrite{batch: b.Clone(), baseVersion: storedVersion}
	t.order = append(t.order, b.ID)
	return nil
}

func (t *memTx) lookup(id string) (*model.Batch, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.writes[id]
	if !ok {
		return nil, false
	}
	return w.batch, true
}

func (t *memTx) stagedChildren(parentID string) []*model.Batch {
	t.mu.Lock()
	defer t.mu.Unlock()
	var children []*model.Batch
	for _, id := range t.order {
		if w := t.writes[id]; w.batch.ParentID == parentID {
			children = append(children, w.batch)
		}
	}
	return children
}

// commit validates every staged write against the committed state and applies
// them all, or none.
func (t *memTx) commit() error {
	const op = "InMemoryBatchRepository.Commit"
	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range t.order {
		w := t.writes[id]
		stored, exists := r.batches[id]
		switch {
		case w.insert && exists:
			return exception.NewEngineErrorf(op, exception.KindConflict, "batch %s already exists", id)
		case !w.insert && !exists:
			return exception.NewNotFoundError(op, fmt.Sprintf("batch %s was removed concurrently", id), repository.ErrBatchNotFound)
		case !w.insert && stored.Version != w.baseVersion:
			return versionConflict(op, id, w.baseVersion)
		}
	}
	for _, id := range t.order {
		r.batches[id] = t.writes[id].batch
	}
	return nil
}

func (t *memTx) unsupported(operation string) error {
	return exception.NewEngineErrorf("InMemoryTransaction", exception.KindInternal, "%s is not supported by the in-memory store", operation)
}

func (t *memTx) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	return 0, t.unsupported("ExecuteUpdate")
}

func (t *memTx) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	return 0, t.unsupported("ExecuteUpsert")
}

func (t *memTx) ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error {
	return t.unsupported("ExecuteQuery")
}

func (t *memTx) ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error {
	return t.unsupported("ExecuteQueryAdvanced")
}

func (t *memTx) Savepoint(name string) error {
	return t.unsupported("Savepoint")
}

func (t *memTx) RollbackToSavepoint(name string) error {
	return t.unsupported("RollbackToSavepoint")
}

// TransactionManager runs transactions against an InMemoryBatchRepository.
type TransactionManager struct {
	repo *InMemoryBatchRepository
}

// NewTransactionManager creates a TransactionManager for repo.
func NewTransactionManager(repo *InMemoryBatchRepository) *TransactionManager {
	return &TransactionManager{repo: repo}
}

// Begin starts a transaction. Isolation options are ignored.
func (m *TransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	return &memTx{repo: m.repo, writes: make(map[string]*stagedWrite)}, nil
}

// Commit applies the staged writes. On a conflict nothing is applied and an
// optimistic locking failure is returned.
func (m *TransactionManager) Commit(t tx.Tx) error {
	mt, err := m.own(t)
	if err != nil {
		return err
	}
	if mt.finished {
		return exception.NewTransactionError("InMemoryTransactionManager", "transaction already finished", nil)
	}
	mt.finished = true
	if err := mt.commit(); err != nil {
		return err
	}
	logger.Debugf("In-memory transaction committed %d write(s).", len(mt.order))
	return nil
}

// Rollback discards the staged writes.
func (m *TransactionManager) Rollback(t tx.Tx) error {
	mt, err := m.own(t)
	if err != nil {
		return err
	}
	mt.finished = true
	mt.mu.Lock()
	mt.writes = make(map[string]*stagedWrite)
	mt.order = nil
	mt.mu.Unlock()
	return nil
}

func (m *TransactionManager) own(t tx.Tx) (*memTx, error) {
	mt, ok := t.(*memTx)
	if !ok || mt.repo != m.repo {
		return nil, exception.NewTransactionError("InMemoryTransactionManager", fmt.Sprintf("foreign transaction %T", t), nil)
	}
	return mt, nil
}

var _ tx.TransactionManager = (*TransactionManager)(nil)
