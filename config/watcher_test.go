package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestNewWatcher(t *testing.T) {
	loader := NewLoader()

	t.Run("valid config path", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("app:\n  name: test\n"), 0644); err != nil {
			t.Fatalf("failed to create temp config: %v", err)
		}

		watcher, err := NewWatcher(configPath, loader)
		if err != nil {
			t.Fatalf("NewWatcher failed: %v", err)
		}
		defer watcher.Stop()

		if watcher.ConfigPath() != configPath {
			t.Errorf("expected config path %s, got %s", configPath, watcher.ConfigPath())
		}
	})

	t.Run("empty config path", func(t *testing.T) {
		_, err := NewWatcher("", loader)
		if err == nil {
			t.Fatal("expected error for empty config path")
		}
	})

	t.Run("with debounce option", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("app:\n  name: test\n"), 0644); err != nil {
			t.Fatalf("failed to create temp config: %v", err)
		}

		watcher, err := NewWatcher(configPath, loader, WithDebounce(100*time.Millisecond))
		if err != nil {
			t.Fatalf("NewWatcher failed: %v", err)
		}
		defer watcher.Stop()

		if watcher.debounce != 100*time.Millisecond {
			t.Errorf("expected debounce 100ms, got %v", watcher.debounce)
		}
	})
}

func TestWatcher_DetectsChanges(t *testing.T) {
	loader := NewLoader()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	initialContent := `app:
  name: memvault-test
log:
  level: info
storage:
  type: memory
`
	if err := os.WriteFile(configPath, []byte(initialContent), 0644); err != nil {
		t.Fatalf("failed to create temp config: %v", err)
	}

	watcher, err := NewWatcher(configPath, loader)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var mu sync.Mutex
	var received *Config
	watcher.OnChange(func(cfg *Config) {
		mu.Lock()
		defer mu.Unlock()
		received = cfg
	})

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- watcher.Watch(ctx)
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	updatedContent := `app:
  name: memvault-test
log:
  level: debug
storage:
  type: memory
`
	if err := os.WriteFile(configPath, []byte(updatedContent), 0644); err != nil {
		t.Fatalf("failed to update config: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		got := received
		mu.Unlock()
		if got != nil {
			if got.Log.Level != "debug" {
				t.Errorf("expected reloaded log level debug, got %s", got.Log.Level)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for change callback")
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	<-watchErr
}

func TestHotReloadableConfig_Changed(t *testing.T) {
	base := HotReloadableConfig{
		LogLevel:      "info",
		LogFormat:     "json",
		PurgeInterval: time.Hour,
		AuditEnabled:  true,
	}

	if base.Changed(base) {
		t.Error("identical configs must not report a change")
	}

	modified := base
	modified.LogLevel = "debug"
	if !base.Changed(modified) {
		t.Error("log level change must be detected")
	}

	modified = base
	modified.PurgeInterval = 30 * time.Minute
	if !base.Changed(modified) {
		t.Error("purge interval change must be detected")
	}
}

func TestExtractHotReloadable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "warn"
	cfg.Vault.PurgeInterval = 15 * time.Minute

	hot := ExtractHotReloadable(cfg)
	if hot.LogLevel != "warn" {
		t.Errorf("expected warn, got %s", hot.LogLevel)
	}
	if hot.PurgeInterval != 15*time.Minute {
		t.Errorf("expected 15m, got %s", hot.PurgeInterval)
	}
	if !hot.AuditEnabled {
		t.Error("expected audit enabled")
	}
}
