// Package config holds the configuration model of the caseflow engine and
// the loader that builds it from embedded YAML, .env files and the environment.
package config

// EmbeddedConfig holds the raw bytes of the application's YAML file, usually
// embedded into the binary by main.go.
type EmbeddedConfig []byte

// LogLevel names a logging level in configuration.
type LogLevel string

const (
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelSilent LogLevel = "SILENT"
)

// Repository implementations selectable through Infrastructure.BatchRepositoryType.
const (
	RepositoryTypeSQL      = "sql"
	RepositoryTypeInMemory = "inmemory"
)

// Metrics exporters selectable through Metrics.Exporter.
const (
	ExporterNone       = "none"
	ExporterPrometheus = "prometheus"
	ExporterOTLPHTTP   = "otlp-http"
	ExporterOTLPGRPC   = "otlp-grpc"
)

// RetryConfig describes an exponential backoff retry policy. Intervals are milliseconds.
type RetryConfig struct {
	MaxAttempts         int      `yaml:"max_attempts"`
	InitialInterval     int      `yaml:"initial_interval"`
	MaxInterval         int      `yaml:"max_interval"`
	Factor              float64  `yaml:"factor"`
	RetryableExceptions []string `yaml:"retryable_exceptions"`
}

// JobConfig configures the asynchronous job scheduler that runs validation workers.
type JobConfig struct {
	Workers                int         `yaml:"workers"`
	QueueSize              int         `yaml:"queue_size"`
	ShutdownTimeoutSeconds int         `yaml:"shutdown_timeout_seconds"`
	Retry                  RetryConfig `yaml:"retry"`
}

// EngineConfig configures command dispatch and the migration subsystem.
type EngineConfig struct {
	// CommandRetry governs re-running a whole dispatch after an optimistic locking conflict.
	CommandRetry RetryConfig `yaml:"command_retry"`
	// Job configures the scheduler.
	Job JobConfig `yaml:"job"`
	// ValidationBatchType is the type discriminator written to migration validation batches.
	ValidationBatchType string `yaml:"validation_batch_type"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// InfrastructureConfig selects and locates the Batch Store.
type InfrastructureConfig struct {
	BatchRepositoryType  string `yaml:"batch_repository_type"`
	BatchRepositoryDBRef string `yaml:"batch_repository_db_ref"`
	// SkipSchemaMigration disables applying the embedded schema migrations on start.
	SkipSchemaMigration bool `yaml:"skip_schema_migration"`
}

// MetricsConfig selects the metrics/tracing backend.
type MetricsConfig struct {
	Exporter      string `yaml:"exporter"`
	Endpoint      string `yaml:"endpoint"`
	Insecure      bool   `yaml:"insecure"`
	ServiceName   string `yaml:"service_name"`
	ListenAddress string `yaml:"listen_address"`
	// ExportIntervalSeconds is the push interval of the OTLP metric reader.
	ExportIntervalSeconds int `yaml:"export_interval_seconds"`
	// AsyncBufferSize is the event queue size of the asynchronous recorder
	// installed by the metrics listener module. 0 means the default of 100.
	AsyncBufferSize int `yaml:"async_buffer_size"`
}

// CaseflowConfig holds everything under the "caseflow" top-level key.
type CaseflowConfig struct {
	System         SystemConfig         `yaml:"system"`
	Engine         EngineConfig         `yaml:"engine"`
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	// AdapterConfigs holds raw adapter settings keyed by adapter kind, e.g.
	// adapter.database.metadata. Adapters bind their own section with configbinder.
	AdapterConfigs map[string]interface{} `yaml:"adapter"`
}

// Config is the root configuration.
type Config struct {
	Caseflow CaseflowConfig `yaml:"caseflow"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Caseflow: CaseflowConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Engine: EngineConfig{
				CommandRetry: RetryConfig{
					MaxAttempts:     3,
					InitialInterval: 50,
					MaxInterval:     1000,
					Factor:          2.0,
				},
				Job: JobConfig{
					Workers:                4,
					QueueSize:              256,
					ShutdownTimeoutSeconds: 30,
					Retry: RetryConfig{
						MaxAttempts:     5,
						InitialInterval: 500,
						MaxInterval:     30000,
						Factor:          2.0,
						RetryableExceptions: []string{
							"OptimisticLockingFailureException",
							"context.DeadlineExceeded",
						},
					},
				},
				ValidationBatchType: "migration-validation",
			},
			Infrastructure: InfrastructureConfig{
				BatchRepositoryType:  RepositoryTypeSQL,
				BatchRepositoryDBRef: "metadata",
			},
			Metrics: MetricsConfig{
				Exporter:              ExporterNone,
				ServiceName:           "caseflow",
				ListenAddress:         ":9090",
				ExportIntervalSeconds: 15,
			},
			AdapterConfigs: map[string]interface{}{},
		},
	}
}

// DatabaseConfigs returns the raw "adapter.database" section, keyed by connection name.
func (c *Config) DatabaseConfigs() map[string]interface{} {
	raw, ok := c.Caseflow.AdapterConfigs["database"]
	if !ok {
		return nil
	}
	m, _ := raw.(map[string]interface{})
	return m
}
