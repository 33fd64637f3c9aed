// Package tx defines the transaction abstractions used by the command
// framework and the repositories.
package tx

import (
	"context"
	"database/sql"

	"github.com/tigerroll/caseflow/pkg/engine/core/adapter"
)

// TxExecutor is the subset of statements a transaction can run.
type TxExecutor interface {
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error
}

// Tx is an open transaction.
type Tx interface {
	TxExecutor
	Savepoint(name string) error
	RollbackToSavepoint(name string) error
}

// TransactionManager begins and finishes transactions.
type TransactionManager interface {
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	Commit(tx Tx) error
	Rollback(tx Tx) error
}

// TransactionManagerFactory creates a TransactionManager bound to a connection.
type TransactionManagerFactory interface {
	NewTransactionManager(conn adapter.DBConnection) TransactionManager
}

type txKey struct{}

// NewContext returns a copy of ctx carrying t.
func NewContext(ctx context.Context, t Tx) context.Context {
	return context.WithValue(ctx, txKey{}, t)
}

// FromContext returns the transaction carried by ctx, if any.
func FromContext(ctx context.Context) (Tx, bool) {
	t, ok := ctx.Value(txKey{}).(Tx)
	return t, ok && t != nil
}
