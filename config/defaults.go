package config

import "time"

// DevInstallSalt is the development-only installation salt used when none is
// configured. Production startup refuses to run with it; see Config.Validate.
const DevInstallSalt = "memvault-development-salt"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "memvault",
			Version:     "dev",
			Environment: "development",
			Debug:       false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Vault: VaultConfig{
			KDFIterations:       100000,
			InstallSalt:         "",
			MaxEntriesPerUser:   0,
			PurgeInterval:       time.Hour,
			CacheSize:           1000,
			DecryptFailureRate:  1,
			DecryptFailureBurst: 10,
			Audit: AuditConfig{
				Enabled:       true,
				RetentionDays: 90,
				FlushEvery:    100,
			},
		},
		Storage: StorageConfig{
			Type: "badger",
			Badger: BadgerConfig{
				Path:              "./data/vault",
				SyncWrites:        true,
				ValueLogFileSize:  1073741824, // 1GB
				NumVersionsToKeep: 1,
			},
			Redis: RedisConfig{
				Address:   "localhost:6379",
				Password:  "",
				DB:        0,
				KeyPrefix: "memvault:",
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9091,
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Exporter:   "otlp",
			Endpoint:   "localhost:4317",
			Timeout:    10 * time.Second,
			Sampler:    "ratio",
			SampleRate: 0.1,
		},
	}
}
