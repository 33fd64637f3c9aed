// Package config defines the settings of one database connection as found
// under caseflow.adapter.database.<name>.
package config

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Type     string     `yaml:"type"`     // "postgres", "mysql" or "sqlite".
	Host     string     `yaml:"host"`     // Database host address.
	Port     int        `yaml:"port"`     // Database port number.
	Database string     `yaml:"database"` // Database name, or file path for sqlite.
	User     string     `yaml:"user"`
	Password string     `yaml:"password"`
	Schema   string     `yaml:"schema,omitempty"` // Search path for PostgreSQL.
	Sslmode  string     `yaml:"sslmode"`
	LogLevel string     `yaml:"log_level"` // GORM log level, SILENT when empty.
	Pool     PoolConfig `yaml:"pool"`
}
