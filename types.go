package gpa

import "time"

// =====================================
// Core Types and Constants
// =====================================

// Config represents database connection configuration
type Config struct {
	// Connection details
	Driver        string `json:"driver" yaml:"driver" env:"GPA_DRIVER"`
	ConnectionURL string `json:"connection_url" yaml:"connection_url" env:"GPA_CONNECTION_URL"`
	Host          string `json:"host" yaml:"host" env:"GPA_HOST"`
	Port          int    `json:"port" yaml:"port" env:"GPA_PORT"`
	Database      string `json:"database" yaml:"database" env:"GPA_DATABASE"`
	Username      string `json:"username" yaml:"username" env:"GPA_USERNAME"`
	Password      string `json:"password" yaml:"password" env:"GPA_PASSWORD"`

	// Connection pool settings
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns" env:"GPA_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" env:"GPA_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" env:"GPA_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time" env:"GPA_CONN_MAX_IDLE_TIME"`

	// Additional options, keyed by adapter name ("gorm", "bun")
	Options map[string]interface{} `json:"options" yaml:"options"`

	// SSL/TLS configuration
	SSL SSLConfig `json:"ssl" yaml:"ssl"`

	// Logging configuration for sessions and providers
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SSLConfig represents SSL/TLS configuration
type SSLConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled" env:"GPA_SSL_ENABLED"`
	Mode     string `json:"mode" yaml:"mode" env:"GPA_SSL_MODE"`
	CertFile string `json:"cert_file" yaml:"cert_file"`
	KeyFile  string `json:"key_file" yaml:"key_file"`
	CAFile   string `json:"ca_file" yaml:"ca_file"`
}

// LoggingConfig selects the structured logger mode ("development", "production" or "test")
type LoggingConfig struct {
	Mode string `json:"mode" yaml:"mode" env:"GPA_LOG_MODE"`
}

// AdapterOptions returns the option map stored under the given adapter name.
// A missing or malformed entry yields an empty map.
func (c Config) AdapterOptions(adapter string) map[string]interface{} {
	if c.Options == nil {
		return map[string]interface{}{}
	}
	if opts, ok := c.Options[adapter].(map[string]interface{}); ok {
		return opts
	}
	return map[string]interface{}{}
}

// ProviderInfo contains information about the provider
type ProviderInfo struct {
	Name         string
	Version      string
	DatabaseType DatabaseType
	Features     []Feature
}

// DatabaseType represents the type of database
type DatabaseType string

const (
	DatabaseTypeSQL DatabaseType = "sql"
)

// Feature represents a database feature
type Feature string

const (
	FeatureTransactions Feature = "transactions"
	FeatureJoins        Feature = "joins"
	FeatureIndexing     Feature = "indexing"
	FeatureRawSQL       Feature = "raw_sql"
	FeatureMigration    Feature = "migration"
)

// Operator represents query operators
type Operator string

const (
	OpEqual              Operator = "="
	OpNotEqual           Operator = "!="
	OpGreaterThan        Operator = ">"
	OpGreaterThanOrEqual Operator = ">="
	OpLessThan           Operator = "<"
	OpLessThanOrEqual    Operator = "<="
	OpIn                 Operator = "IN"
	OpNotIn              Operator = "NOT IN"
	OpIsNull             Operator = "IS NULL"
	OpIsNotNull          Operator = "IS NOT NULL"
)

// Order represents sorting order
type Order struct {
	Field     string
	Direction OrderDirection
}

// OrderDirection represents sort direction
type OrderDirection string

const (
	OrderAsc  OrderDirection = "ASC"
	OrderDesc OrderDirection = "DESC"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeDuplicate       ErrorType = "duplicate"
	ErrorTypeConnection      ErrorType = "connection"
	ErrorTypeTimeout         ErrorType = "timeout"
	ErrorTypeConstraint      ErrorType = "constraint"
	ErrorTypeTransaction     ErrorType = "transaction"
	ErrorTypeUnsupported     ErrorType = "unsupported"
	ErrorTypeInternal        ErrorType = "internal"
	ErrorTypeInvalidArgument ErrorType = "invalid_argument"
	ErrorTypeDatabase        ErrorType = "database"
	ErrorTypePersistence     ErrorType = "persistence"
)

// TxState is the position of a Session in its per-write transaction cycle
type TxState int32

const (
	TxIdle TxState = iota
	TxActive
	TxCommitted
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxIdle:
		return "idle"
	case TxActive:
		return "transaction_active"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}
