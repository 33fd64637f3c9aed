package gorm

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/tigerroll/caseflow/pkg/engine/core/adapter"
	"github.com/tigerroll/caseflow/pkg/engine/core/tx"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
)

// GormTxAdapter implements tx.Tx over a gorm transaction.
type GormTxAdapter struct {
	statements
}

func (t *GormTxAdapter) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	return t.executeUpdate(ctx, model, operation, tableName, query)
}

func (t *GormTxAdapter) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	return t.executeUpsert(ctx, model, tableName, conflictColumns, updateColumns)
}

func (t *GormTxAdapter) ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error {
	return t.executeQuery(ctx, target, query)
}

func (t *GormTxAdapter) ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error {
	return t.executeQueryAdvanced(ctx, target, query, orderBy, limit)
}

func (t *GormTxAdapter) Savepoint(name string) error {
	return t.db.SavePoint(name).Error
}

func (t *GormTxAdapter) RollbackToSavepoint(name string) error {
	return t.db.RollbackTo(name).Error
}

// GormTransactionManager implements tx.TransactionManager for one named connection.
// The connection is resolved on every Begin so that a reconnect is picked up.
type GormTransactionManager struct {
	dbResolver adapter.DBConnectionResolver
	dbName     string
}

// NewGormTransactionManager creates a transaction manager for the connection dbName.
func NewGormTransactionManager(dbResolver adapter.DBConnectionResolver, dbName string) *GormTransactionManager {
	return &GormTransactionManager{dbResolver: dbResolver, dbName: dbName}
}

func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	const op = "GormTransactionManager.Begin"
	conn, err := m.dbResolver.ResolveDBConnection(ctx, m.dbName)
	if err != nil {
		return nil, exception.NewTransactionError(op, fmt.Sprintf("failed to resolve DB connection '%s' for transaction", m.dbName), err)
	}
	gormAdapter, ok := conn.(*GormDBAdapter)
	if !ok {
		return nil, exception.NewTransactionError(op, fmt.Sprintf("connection '%s' is %T, not a GORM connection", m.dbName, conn), nil)
	}

	var txOpts []*sql.TxOptions
	if len(opts) > 0 && opts[0] != nil {
		txOpts = opts[:1]
	}
	gormTx := gormAdapter.GormDB().WithContext(ctx).Begin(txOpts...)
	if gormTx.Error != nil {
		return nil, exception.NewTransactionError(op, "failed to begin transaction", gormTx.Error)
	}
	return &GormTxAdapter{statements: statements{db: gormTx}}, nil
}

func (m *GormTransactionManager) Commit(t tx.Tx) error {
	gormTx, err := asGormTx(t)
	if err != nil {
		return err
	}
	return gormTx.db.Commit().Error
}

func (m *GormTransactionManager) Rollback(t tx.Tx) error {
	gormTx, err := asGormTx(t)
	if err != nil {
		return err
	}
	if rerr := gormTx.db.Rollback().Error; rerr != nil && rerr != gorm.ErrInvalidTransaction {
		return rerr
	}
	return nil
}

func asGormTx(t tx.Tx) (*GormTxAdapter, error) {
	gormTx, ok := t.(*GormTxAdapter)
	if !ok {
		return nil, fmt.Errorf("invalid transaction type %T: expected *GormTxAdapter", t)
	}
	return gormTx, nil
}

// GormTransactionManagerFactory is the GORM implementation of tx.TransactionManagerFactory.
type GormTransactionManagerFactory struct {
	dbResolver adapter.DBConnectionResolver
}

// NewGormTransactionManagerFactory creates the factory.
func NewGormTransactionManagerFactory(dbResolver adapter.DBConnectionResolver) tx.TransactionManagerFactory {
	return &GormTransactionManagerFactory{dbResolver: dbResolver}
}

// NewTransactionManager creates a manager bound to the name of conn.
func (f *GormTransactionManagerFactory) NewTransactionManager(conn adapter.DBConnection) tx.TransactionManager {
	return NewGormTransactionManager(f.dbResolver, conn.Name())
}

var (
	_ tx.Tx                 = (*GormTxAdapter)(nil)
	_ tx.TransactionManager = (*GormTransactionManager)(nil)
)

// IsTableNotExistError reports whether err signals a missing table.
func (t *GormTxAdapter) IsTableNotExistError(err error) bool {
	return isTableNotExistError(err)
}
