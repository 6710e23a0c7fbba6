// Package config provides configuration management for memvault.
package config

import (
	"fmt"
	"time"
)

// Config is the global configuration for memvault.
type Config struct {
	// App is the application configuration.
	App AppConfig `mapstructure:"app" validate:"required"`

	// Log is the logging configuration.
	Log LogConfig `mapstructure:"log" validate:"required"`

	// Vault is the secure memory store configuration.
	Vault VaultConfig `mapstructure:"vault" validate:"required"`

	// Storage is the persistence configuration.
	Storage StorageConfig `mapstructure:"storage"`

	// Metrics is the observability configuration.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Tracing is the distributed tracing configuration.
	Tracing TracingConfig `mapstructure:"tracing"`
}

// AppConfig holds application metadata and settings.
type AppConfig struct {
	// Name is the application name.
	Name string `mapstructure:"name" validate:"required"`

	// Version is the application version.
	Version string `mapstructure:"version"`

	// Environment is the runtime environment (development, staging, production).
	Environment string `mapstructure:"environment" validate:"oneof=development staging production"`

	// Debug enables debug mode with verbose logging.
	Debug bool `mapstructure:"debug"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`

	// Format is the output format (json, text).
	Format string `mapstructure:"format" validate:"oneof=json text"`

	// Output is the output destination (stdout, stderr, or file path).
	Output string `mapstructure:"output"`
}

// VaultConfig holds the secure memory store settings.
type VaultConfig struct {
	// KDFIterations is the PBKDF2 iteration count for key derivation.
	KDFIterations int `mapstructure:"kdf_iterations" validate:"min=10000"`

	// InstallSalt is the installation-wide salt seed for key derivation
	// and identifier hashing. Required in the production environment;
	// startup fails if it is absent there.
	InstallSalt string `mapstructure:"install_salt"`

	// MaxEntriesPerUser caps the number of live entries per user.
	// Zero means unlimited.
	MaxEntriesPerUser int `mapstructure:"max_entries_per_user" validate:"min=0"`

	// PurgeInterval is how often the background sweep removes expired entries.
	PurgeInterval time.Duration `mapstructure:"purge_interval"`

	// CacheSize is the number of encrypted entries held in the in-process
	// LRU cache in front of the storage backend.
	CacheSize int `mapstructure:"cache_size" validate:"min=0"`

	// DecryptFailureRate is the sustained rate of failed decryptions per
	// second tolerated per user before reads are throttled.
	DecryptFailureRate float64 `mapstructure:"decrypt_failure_rate" validate:"min=0"`

	// DecryptFailureBurst is the failed-decryption burst budget per user.
	DecryptFailureBurst int `mapstructure:"decrypt_failure_burst" validate:"min=0"`

	// Audit is the audit log configuration.
	Audit AuditConfig `mapstructure:"audit"`
}

// AuditConfig holds audit log settings.
type AuditConfig struct {
	// Enabled enables audit logging of privileged operations.
	Enabled bool `mapstructure:"enabled"`

	// RetentionDays drops audit records older than this many days at load.
	RetentionDays int `mapstructure:"retention_days" validate:"min=1"`

	// FlushEvery flushes the audit log to storage after this many appends.
	FlushEvery int `mapstructure:"flush_every" validate:"min=1"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// Type is the storage backend (memory, badger, redis).
	Type string `mapstructure:"type" validate:"oneof=memory badger redis"`

	// Badger is the BadgerDB configuration.
	Badger BadgerConfig `mapstructure:"badger"`

	// Redis is the Redis configuration.
	Redis RedisConfig `mapstructure:"redis"`
}

// BadgerConfig holds BadgerDB-specific settings.
type BadgerConfig struct {
	// Path is the database directory path.
	Path string `mapstructure:"path"`

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool `mapstructure:"sync_writes"`

	// ValueLogFileSize is the maximum size of value log files in bytes.
	ValueLogFileSize int64 `mapstructure:"value_log_file_size"`

	// NumVersionsToKeep is the number of versions to keep per key.
	NumVersionsToKeep int `mapstructure:"num_versions_to_keep"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	// Address is the Redis server address.
	Address string `mapstructure:"address"`

	// Password is the Redis password.
	Password string `mapstructure:"password"`

	// DB is the Redis database number.
	DB int `mapstructure:"db"`

	// KeyPrefix namespaces all memvault keys in the Redis keyspace.
	KeyPrefix string `mapstructure:"key_prefix"`
}

// MetricsConfig holds observability settings.
type MetricsConfig struct {
	// Enabled enables metrics collection.
	Enabled bool `mapstructure:"enabled"`

	// Path is the metrics endpoint path.
	Path string `mapstructure:"path"`

	// Port is the metrics server port.
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
}

// TracingConfig holds distributed tracing settings.
type TracingConfig struct {
	// Enabled enables distributed tracing.
	Enabled bool `mapstructure:"enabled"`

	// Exporter is the span exporter type (otlp).
	Exporter string `mapstructure:"exporter"`

	// Endpoint is the collector endpoint.
	Endpoint string `mapstructure:"endpoint"`

	// Timeout is the exporter timeout.
	Timeout time.Duration `mapstructure:"timeout"`

	// Headers are extra headers sent to the collector.
	Headers map[string]string `mapstructure:"headers"`

	// Sampler selects the sampling strategy (ratio, always_on, always_off).
	Sampler string `mapstructure:"sampler"`

	// SampleRate is the fraction of traces to sample (0.0-1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"min=0,max=1"`
}

// Validate performs validation on the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return c.checkProductionHardening()
}

// checkProductionHardening rejects configurations that are unsafe outside
// development, most importantly a missing installation salt.
func (c *Config) checkProductionHardening() error {
	if c.App.Environment != "production" {
		return nil
	}
	if c.Vault.InstallSalt == "" {
		return fmt.Errorf("config: vault.install_salt must be set in production")
	}
	return nil
}

// String returns a string representation of the configuration (without sensitive data).
func (c *Config) String() string {
	return fmt.Sprintf("Config{App: %s, Env: %s, Storage: %s, AuditEnabled: %t}",
		c.App.Name, c.App.Environment, c.Storage.Type, c.Vault.Audit.Enabled)
}
