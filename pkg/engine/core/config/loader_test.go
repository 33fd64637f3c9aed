package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/caseflow/pkg/engine/core/config"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
)

const testYAML = `
caseflow:
  system:
    logging:
      level: ${TEST_CASEFLOW_LOG_LEVEL:-DEBUG}
  engine:
    job:
      workers: 2
      retry:
        retryable_exceptions: ["context.Canceled"]
  infrastructure:
    batch_repository_type: inmemory
  metrics:
    exporter: prometheus
    async_buffer_size: 64
  adapter:
    database:
      metadata:
        type: sqlite
        host: localhost
`

func TestLoadConfig_MergesYAMLOverDefaults(t *testing.T) {
	cfg, err := config.LoadConfig("testdata-missing.env", config.EmbeddedConfig(testYAML), nil)
	require.NoError(t, err)

	cf := cfg.Caseflow
	assert.Equal(t, "DEBUG", cf.System.Logging.Level)
	assert.Equal(t, "UTC", cf.System.Timezone)
	assert.Equal(t, 2, cf.Engine.Job.Workers)
	assert.Equal(t, 256, cf.Engine.Job.QueueSize)
	assert.Equal(t, []string{"context.Canceled"}, cf.Engine.Job.Retry.RetryableExceptions)
	assert.Equal(t, 5, cf.Engine.Job.Retry.MaxAttempts)
	assert.Equal(t, config.RepositoryTypeInMemory, cf.Infrastructure.BatchRepositoryType)
	assert.Equal(t, "metadata", cf.Infrastructure.BatchRepositoryDBRef)
	assert.Equal(t, config.ExporterPrometheus, cf.Metrics.Exporter)
	assert.Equal(t, 64, cf.Metrics.AsyncBufferSize)
	assert.Equal(t, "caseflow", cf.Metrics.ServiceName)

	db := cfg.DatabaseConfigs()
	require.Contains(t, db, "metadata")
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("TEST_CASEFLOW_LOG_LEVEL", "WARN")
	t.Setenv("CASEFLOW_ENGINE_JOB_WORKERS", "8")
	t.Setenv("CASEFLOW_ENGINE_COMMAND_RETRY_RETRYABLE_EXCEPTIONS", "context.Canceled, sql.ErrTxDone")
	t.Setenv("CASEFLOW_ADAPTER_DATABASE_METADATA_HOST", "db.internal")

	cfg, err := config.LoadConfig("testdata-missing.env", config.EmbeddedConfig(testYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, "WARN", cfg.Caseflow.System.Logging.Level)
	assert.Equal(t, 8, cfg.Caseflow.Engine.Job.Workers)
	assert.Equal(t, []string{"context.Canceled", "sql.ErrTxDone"}, cfg.Caseflow.Engine.CommandRetry.RetryableExceptions)

	metadata, ok := cfg.DatabaseConfigs()["metadata"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "db.internal", metadata["host"])
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	_, err := config.LoadConfig("testdata-missing.env", config.EmbeddedConfig("caseflow: [unclosed"), nil)
	assert.True(t, exception.IsInvalidArgument(err))

	t.Setenv("CASEFLOW_ENGINE_JOB_WORKERS", "many")
	_, err = config.LoadConfig("testdata-missing.env", config.EmbeddedConfig(testYAML), nil)
	assert.True(t, exception.IsInvalidArgument(err))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr bool
	}{
		{"defaults", func(c *config.Config) {}, false},
		{"unknown repository", func(c *config.Config) { c.Caseflow.Infrastructure.BatchRepositoryType = "redis" }, true},
		{"unknown exporter", func(c *config.Config) { c.Caseflow.Metrics.Exporter = "statsd" }, true},
		{"no workers", func(c *config.Config) { c.Caseflow.Engine.Job.Workers = 0 }, true},
		{"negative queue", func(c *config.Config) { c.Caseflow.Engine.Job.QueueSize = -1 }, true},
		{"unknown exception class", func(c *config.Config) {
			c.Caseflow.Engine.CommandRetry.RetryableExceptions = []string{"NoSuchException"}
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.True(t, exception.IsInvalidArgument(err), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewConfigProvider_ValidatesResult(t *testing.T) {
	cfg, err := config.NewConfigProvider(config.ConfigParams{
		EmbeddedConfig: config.EmbeddedConfig(testYAML),
		EnvFilePath:    "testdata-missing.env",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Caseflow.Engine.Job.Workers)

	_, err = config.NewConfigProvider(config.ConfigParams{
		EmbeddedConfig: config.EmbeddedConfig("caseflow:\n  metrics:\n    exporter: statsd\n"),
		EnvFilePath:    "testdata-missing.env",
	})
	assert.Error(t, err)
}

func TestOsEnvironmentExpander(t *testing.T) {
	t.Setenv("TEST_CASEFLOW_DSN_HOST", "db1")
	out, err := config.NewOsEnvironmentExpander().Expand([]byte("host=${TEST_CASEFLOW_DSN_HOST} port=${TEST_CASEFLOW_UNSET:-5432} pass=$ecret empty=${TEST_CASEFLOW_UNSET}"))
	require.NoError(t, err)
	assert.Equal(t, "host=db1 port=5432 pass=$ecret empty=", string(out))
}
