package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/caseflow/pkg/engine/adapter/database/config"
	"github.com/tigerroll/caseflow/pkg/engine/adapter/database/gorm/sqlite"
	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
)

func TestConnectionString(t *testing.T) {
	_, err := sqlite.ConnectionString(dbconfig.DatabaseConfig{})
	assert.Error(t, err)

	dsn, err := sqlite.ConnectionString(dbconfig.DatabaseConfig{Database: "/tmp/x.db"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", dsn)
}

func TestProvider_OpensSingleConnectionPool(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Caseflow.AdapterConfigs["database"] = map[string]interface{}{
		"metadata": map[string]interface{}{"type": "sqlite", "database": filepath.Join(t.TempDir(), "p.db")},
	}
	p := sqlite.NewProvider(cfg)
	t.Cleanup(func() { _ = p.CloseAll() })

	conn, err := p.GetConnection("metadata")
	require.NoError(t, err)
	again, err := p.GetConnection("metadata")
	require.NoError(t, err)
	assert.Same(t, conn, again)
	require.NoError(t, conn.RefreshConnection(context.Background()))

	sqlDB, err := conn.GetSQLDB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	reconnected, err := p.ForceReconnect("metadata")
	require.NoError(t, err)
	assert.NotSame(t, conn, reconnected)
}
