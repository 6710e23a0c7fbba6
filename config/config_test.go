package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// App defaults
	if cfg.App.Name != "memvault" {
		t.Errorf("expected app name 'memvault', got %s", cfg.App.Name)
	}
	if cfg.App.Environment != "development" {
		t.Errorf("expected environment 'development', got %s", cfg.App.Environment)
	}

	// Log defaults
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected log format 'json', got %s", cfg.Log.Format)
	}

	// Vault defaults
	if cfg.Vault.KDFIterations != 100000 {
		t.Errorf("expected kdf_iterations 100000, got %d", cfg.Vault.KDFIterations)
	}
	if cfg.Vault.PurgeInterval != time.Hour {
		t.Errorf("expected purge_interval 1h, got %s", cfg.Vault.PurgeInterval)
	}
	if cfg.Vault.CacheSize != 1000 {
		t.Errorf("expected cache_size 1000, got %d", cfg.Vault.CacheSize)
	}
	if !cfg.Vault.Audit.Enabled {
		t.Error("expected audit.enabled to be true")
	}
	if cfg.Vault.Audit.RetentionDays != 90 {
		t.Errorf("expected audit.retention_days 90, got %d", cfg.Vault.Audit.RetentionDays)
	}

	// Storage defaults
	if cfg.Storage.Type != "badger" {
		t.Errorf("expected storage type 'badger', got %s", cfg.Storage.Type)
	}
	if !cfg.Storage.Badger.SyncWrites {
		t.Error("expected badger.sync_writes to be true")
	}
	if cfg.Storage.Redis.KeyPrefix != "memvault:" {
		t.Errorf("expected redis key prefix 'memvault:', got %s", cfg.Storage.Redis.KeyPrefix)
	}

	// Metrics defaults
	if !cfg.Metrics.Enabled {
		t.Error("expected metrics.enabled to be true")
	}
	if cfg.Metrics.Port != 9091 {
		t.Errorf("expected metrics port 9091, got %d", cfg.Metrics.Port)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	cfg = DefaultConfig()
	cfg.Vault.KDFIterations = 100
	if err := cfg.Validate(); err == nil {
		t.Error("expected weak kdf_iterations to fail validation")
	}

	cfg = DefaultConfig()
	cfg.Storage.Type = "cassandra"
	if err := cfg.Validate(); err == nil {
		t.Error("expected unknown storage type to fail validation")
	}

	cfg = DefaultConfig()
	cfg.Log.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("expected unknown log level to fail validation")
	}
}

func TestConfig_ProductionRequiresInstallSalt(t *testing.T) {
	cfg := DefaultConfig()
	cfg.App.Environment = "production"
	cfg.Vault.InstallSalt = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected production config without install salt to fail")
	}

	cfg.Vault.InstallSalt = "a-real-installation-salt"
	if err := cfg.Validate(); err != nil {
		t.Errorf("production config with install salt should validate: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
app:
  name: memvault-test
  environment: staging
vault:
  kdf_iterations: 150000
  max_entries_per_user: 42
storage:
  type: memory
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.App.Name != "memvault-test" {
		t.Errorf("expected app name from file, got %s", cfg.App.Name)
	}
	if cfg.Vault.KDFIterations != 150000 {
		t.Errorf("expected kdf_iterations 150000, got %d", cfg.Vault.KDFIterations)
	}
	if cfg.Vault.MaxEntriesPerUser != 42 {
		t.Errorf("expected max_entries_per_user 42, got %d", cfg.Vault.MaxEntriesPerUser)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("expected storage type memory, got %s", cfg.Storage.Type)
	}
	// Unspecified values keep their defaults.
	if cfg.Vault.PurgeInterval != time.Hour {
		t.Errorf("expected default purge_interval, got %s", cfg.Vault.PurgeInterval)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load("", map[string]interface{}{
		"log.level":    "debug",
		"storage.type": "memory",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected override log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("expected override storage type memory, got %s", cfg.Storage.Type)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("MEMVAULT_VAULT_KDF_ITERATIONS", "200000")
	t.Setenv("MEMVAULT_LOG_LEVEL", "warn")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Vault.KDFIterations != 200000 {
		t.Errorf("expected env kdf_iterations 200000, got %d", cfg.Vault.KDFIterations)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected env log level warn, got %s", cfg.Log.Level)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("app: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, nil); err == nil {
		t.Error("expected malformed yaml to fail")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml", nil); err == nil {
		t.Error("expected missing explicit config file to fail")
	}
}
