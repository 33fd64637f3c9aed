package gorm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/caseflow/pkg/engine/adapter/database/config"
	gormadapter "github.com/tigerroll/caseflow/pkg/engine/adapter/database/gorm"
	"github.com/tigerroll/caseflow/pkg/engine/core/adapter"
	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
)

func configWith(databases map[string]interface{}) *config.Config {
	cfg := config.NewConfig()
	cfg.Caseflow.AdapterConfigs["database"] = databases
	return cfg
}

func TestDatabaseConfigFor(t *testing.T) {
	cfg := configWith(map[string]interface{}{
		"metadata": map[string]interface{}{
			"type":     "postgres",
			"host":     "db",
			"port":     "5432", // env overrides arrive as strings
			"database": "caseflow",
			"pool":     map[string]interface{}{"max_open_conns": 8},
		},
	})

	dbCfg, err := gormadapter.DatabaseConfigFor(cfg, "metadata")
	require.NoError(t, err)
	assert.Equal(t, "postgres", dbCfg.Type)
	assert.Equal(t, 5432, dbCfg.Port)
	assert.Equal(t, 8, dbCfg.Pool.MaxOpenConns)

	_, err = gormadapter.DatabaseConfigFor(cfg, "missing")
	assert.Error(t, err)

	bad := configWith(map[string]interface{}{"metadata": map[string]interface{}{"port": "not-a-port"}})
	_, err = gormadapter.DatabaseConfigFor(bad, "metadata")
	assert.Error(t, err)
}

func TestDialectorRegistry(t *testing.T) {
	_, err := gormadapter.GetDialectorFactory("oracle")
	assert.Error(t, err)

	want := errors.New("factory called")
	gormadapter.RegisterDialector("test-dialect", func(dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return nil, want
	})
	factory, err := gormadapter.GetDialectorFactory("test-dialect")
	require.NoError(t, err)
	_, err = factory(dbconfig.DatabaseConfig{})
	assert.ErrorIs(t, err, want)
}

func TestBaseProvider_Errors(t *testing.T) {
	cfg := configWith(map[string]interface{}{
		"metadata": map[string]interface{}{"type": "postgres"},
		"broken":   map[string]interface{}{"type": "test-broken"},
	})
	gormadapter.RegisterDialector("test-broken", func(dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return nil, errors.New("no dsn")
	})

	_, err := gormadapter.NewBaseProvider(cfg, "mysql").GetConnection("metadata")
	assert.ErrorContains(t, err, "provider type mismatch")

	_, err = gormadapter.NewBaseProvider(cfg, "test-broken").GetConnection("broken")
	assert.ErrorContains(t, err, "no dsn")

	assert.NoError(t, gormadapter.NewBaseProvider(cfg, "mysql").CloseAll())
}

func TestResolver_UnknownConnectionOrType(t *testing.T) {
	cfg := configWith(map[string]interface{}{
		"metadata": map[string]interface{}{"type": "postgres"},
	})
	resolver := gormadapter.NewGormDBConnectionResolver(gormadapter.ResolverParams{
		DBProviders: []adapter.DBProvider{gormadapter.NewBaseProvider(cfg, "mysql")},
		Cfg:         cfg,
	})

	_, err := resolver.ResolveDBConnection(context.Background(), "other")
	assert.ErrorContains(t, err, "not found")
	_, err = resolver.ResolveDBConnection(context.Background(), "metadata")
	assert.ErrorContains(t, err, "DBProvider for type 'postgres' not found")
	assert.NoError(t, resolver.CloseAll())
}

func TestGormDBAdapter(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	gormDB, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	conn := gormadapter.NewGormDBAdapter(gormDB, dbconfig.DatabaseConfig{Type: "mysql"}, "metadata")
	assert.Equal(t, "mysql", conn.Type())
	assert.Equal(t, "metadata", conn.Name())

	mock.ExpectPing()
	assert.NoError(t, conn.RefreshConnection(context.Background()))

	for msg, want := range map[string]bool{
		`pq: relation "act_batch" does not exist`:                true,
		"Error 1146 (42S02): Table 'db.act_batch' doesn't exist": true,
		"no such table: act_batch":                               true,
		"database is locked":                                     false,
	} {
		assert.Equal(t, want, conn.IsTableNotExistError(errors.New(msg)), msg)
	}
	assert.False(t, conn.IsTableNotExistError(nil))

	mock.ExpectClose()
	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
