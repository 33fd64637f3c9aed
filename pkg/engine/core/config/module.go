package config

import "go.uber.org/fx"

// NewLoggingConfigProvider exposes the logging section on its own.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Caseflow.System.Logging
}

// Module provides the helpers derived from a supplied *Config. The *Config
// itself is loaded before the container is built (see NewConfigProvider) and
// supplied with fx.Supply, because module selection depends on it.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(NewOsEnvironmentExpander, fx.As(new(EnvironmentExpander))),
		NewLoggingConfigProvider,
	),
)
