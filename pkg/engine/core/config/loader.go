package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string              `name:"envFilePath" optional:"true"`
	Expander       EnvironmentExpander `optional:"true"`
}

// LoadConfig builds a Config from defaults, the embedded YAML and the environment.
//
// Precedence, lowest first: NewConfig defaults, YAML values (after ${VAR}
// expansion), environment variables named after the yaml path.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}
	raw, err := expander.Expand(embeddedConfig)
	if err != nil {
		return nil, exception.NewEngineError(moduleName, exception.KindInvalidArgument, "failed to expand environment placeholders", err, false)
	}

	var yamlConfig Config
	if err := yaml.Unmarshal(raw, &yamlConfig); err != nil {
		return nil, exception.NewEngineError(moduleName, exception.KindInvalidArgument, "failed to unmarshal embedded config", err, false)
	}

	cfg := NewConfig()
	mergeConfig(cfg, &yamlConfig)

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewEngineError(moduleName, exception.KindInvalidArgument, "failed to load config from environment variables", err, false)
	}
	return cfg, nil
}

// NewConfigProvider loads the configuration, applies the configured log level
// and validates the result. Applications call it before building the Fx
// container; it can also be registered with fx.Provide directly.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := LoadConfig(params.EnvFilePath, params.EmbeddedConfig, params.Expander)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Caseflow.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Caseflow.System.Logging.Level)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the enumerations and numeric bounds of the configuration.
func (c *Config) Validate() error {
	cf := c.Caseflow
	switch cf.Infrastructure.BatchRepositoryType {
	case RepositoryTypeSQL, RepositoryTypeInMemory:
	default:
		return exception.NewEngineErrorf(moduleName, exception.KindInvalidArgument, "unknown batch_repository_type '%s'", cf.Infrastructure.BatchRepositoryType)
	}
	switch cf.Metrics.Exporter {
	case ExporterNone, ExporterPrometheus, ExporterOTLPHTTP, ExporterOTLPGRPC:
	default:
		return exception.NewEngineErrorf(moduleName, exception.KindInvalidArgument, "unknown metrics exporter '%s'", cf.Metrics.Exporter)
	}
	if cf.Engine.Job.Workers <= 0 {
		return exception.NewEngineErrorf(moduleName, exception.KindInvalidArgument, "engine.job.workers must be positive, got %d", cf.Engine.Job.Workers)
	}
	if cf.Engine.Job.QueueSize < 0 {
		return exception.NewEngineErrorf(moduleName, exception.KindInvalidArgument, "engine.job.queue_size must not be negative, got %d", cf.Engine.Job.QueueSize)
	}
	if err := checkExceptionClasses(cf.Engine.Job.Retry.RetryableExceptions, "engine.job.retry"); err != nil {
		return err
	}
	return checkExceptionClasses(cf.Engine.CommandRetry.RetryableExceptions, "engine.command_retry")
}

func checkExceptionClasses(names []string, section string) error {
	for _, name := range names {
		if !exception.IsErrorTypeRegistered(name) {
			return exception.NewEngineErrorf(moduleName, exception.KindInvalidArgument, "%s references unknown exception class '%s'", section, name)
		}
	}
	return nil
}

// mergeConfig copies every non-zero value of source over dest.
func mergeConfig(dest, source *Config) {
	d, s := &dest.Caseflow, &source.Caseflow

	if s.System.Timezone != "" {
		d.System.Timezone = s.System.Timezone
	}
	if s.System.Logging.Level != "" {
		d.System.Logging.Level = s.System.Logging.Level
	}

	mergeRetryConfig(&d.Engine.CommandRetry, &s.Engine.CommandRetry)
	mergeRetryConfig(&d.Engine.Job.Retry, &s.Engine.Job.Retry)
	if s.Engine.Job.Workers != 0 {
		d.Engine.Job.Workers = s.Engine.Job.Workers
	}
	if s.Engine.Job.QueueSize != 0 {
		d.Engine.Job.QueueSize = s.Engine.Job.QueueSize
	}
	if s.Engine.Job.ShutdownTimeoutSeconds != 0 {
		d.Engine.Job.ShutdownTimeoutSeconds = s.Engine.Job.ShutdownTimeoutSeconds
	}
	if s.Engine.ValidationBatchType != "" {
		d.Engine.ValidationBatchType = s.Engine.ValidationBatchType
	}

	if s.Infrastructure.BatchRepositoryType != "" {
		d.Infrastructure.BatchRepositoryType = s.Infrastructure.BatchRepositoryType
	}
	if s.Infrastructure.BatchRepositoryDBRef != "" {
		d.Infrastructure.BatchRepositoryDBRef = s.Infrastructure.BatchRepositoryDBRef
	}
	if s.Infrastructure.SkipSchemaMigration {
		d.Infrastructure.SkipSchemaMigration = true
	}

	if s.Metrics.Exporter != "" {
		d.Metrics.Exporter = s.Metrics.Exporter
	}
	if s.Metrics.Endpoint != "" {
		d.Metrics.Endpoint = s.Metrics.Endpoint
	}
	if s.Metrics.Insecure {
		d.Metrics.Insecure = true
	}
	if s.Metrics.ServiceName != "" {
		d.Metrics.ServiceName = s.Metrics.ServiceName
	}
	if s.Metrics.ListenAddress != "" {
		d.Metrics.ListenAddress = s.Metrics.ListenAddress
	}
	if s.Metrics.ExportIntervalSeconds != 0 {
		d.Metrics.ExportIntervalSeconds = s.Metrics.ExportIntervalSeconds
	}
	if s.Metrics.AsyncBufferSize != 0 {
		d.Metrics.AsyncBufferSize = s.Metrics.AsyncBufferSize
	}

	if s.AdapterConfigs != nil {
		if d.AdapterConfigs == nil {
			d.AdapterConfigs = make(map[string]interface{})
		}
		for key, value := range s.AdapterConfigs {
			d.AdapterConfigs[key] = value
		}
	}
}

func mergeRetryConfig(dest, source *RetryConfig) {
	if source.MaxAttempts != 0 {
		dest.MaxAttempts = source.MaxAttempts
	}
	if source.InitialInterval != 0 {
		dest.InitialInterval = source.InitialInterval
	}
	if source.MaxInterval != 0 {
		dest.MaxInterval = source.MaxInterval
	}
	if source.Factor != 0 {
		dest.Factor = source.Factor
	}
	if source.RetryableExceptions != nil {
		dest.RetryableExceptions = source.RetryableExceptions
	}
}

// loadStructFromEnv walks val and overrides each field from the environment
// variable named after its upper-cased yaml path (CASEFLOW_SYSTEM_LOGGING_LEVEL).
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		switch field.Kind() {
		case reflect.Struct:
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		case reflect.Map:
			if m, ok := field.Interface().(map[string]interface{}); ok && m != nil {
				overrideMapFromEnv(m, envVarName+"_")
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// overrideMapFromEnv applies CASEFLOW_ADAPTER_DATABASE_METADATA_HOST style
// variables to an already loaded nested map. Only keys that exist in the map
// at the parent level can be targeted; the leaf is stored as a string and
// converted later by configbinder.
func overrideMapFromEnv(m map[string]interface{}, prefix string) {
	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		path := strings.ToLower(strings.TrimPrefix(name, prefix))
		if !setNested(m, path, value) {
			logger.Debugf("Environment variable %s does not match any configured adapter key.", name)
		}
	}
}

func setNested(m map[string]interface{}, path, value string) bool {
	if _, ok := m[path]; ok {
		m[path] = value
		return true
	}
	for key, child := range m {
		nested, ok := child.(map[string]interface{})
		if !ok || !strings.HasPrefix(path, strings.ToLower(key)+"_") {
			continue
		}
		if setNested(nested, path[len(key)+1:], value) {
			return true
		}
	}
	return false
}

func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float32, reflect.Float64:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}
