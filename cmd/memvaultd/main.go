package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"

	"github.com/memvault/memvault/config"
	"github.com/memvault/memvault/pkg/logger"
	"github.com/memvault/memvault/pkg/metrics"
	"github.com/memvault/memvault/pkg/telemetry/tracing"
	"github.com/memvault/memvault/pkg/vault"
	"github.com/memvault/memvault/pkg/version"
)

var (
	configPath  = flag.String("config", "", "Path to configuration file")
	versionFlag = flag.Bool("version", false, "Print version information")
	helpFlag    = flag.Bool("help", false, "Print help information")

	// CLI overrides
	storageType = flag.String("storage", "", "Override storage backend (memory, badger, redis)")
	dataPath    = flag.String("data", "", "Override Badger data directory")
	logLevel    = flag.String("log-level", "", "Override log level")
	debugMode   = flag.Bool("debug", false, "Enable debug mode")
)

func main() {
	flag.Parse()

	if *helpFlag {
		printHelp()
		os.Exit(0)
	}

	if *versionFlag {
		printVersion()
		os.Exit(0)
	}

	overrides := buildOverrides()

	cfg, err := config.Load(*configPath, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration:\n%s\n", err)
		os.Exit(1)
	}

	logCfg := &logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	if cfg.App.Debug || *debugMode {
		logCfg.Level = logger.DebugLevel
	}
	log := logger.New(logCfg)
	logger.SetGlobal(log)

	log.Info("Starting memvault",
		"build", version.String(),
		"app", cfg.App.Name,
		"environment", cfg.App.Environment,
	)

	log.Debug("Configuration loaded", "config", cfg.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.App.Name, version.Version)
	if err != nil {
		log.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Initialize the storage backend. The backend holds only ciphertext;
	// the master key never reaches this layer.
	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		log.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error("Error closing storage", "error", err)
		}
	}()

	metricsCfg := metrics.DefaultConfig()
	metricsCfg.Enabled = cfg.Metrics.Enabled
	metricsCfg.Port = cfg.Metrics.Port
	metricsCfg.Path = cfg.Metrics.Path
	metricsManager := metrics.NewManager(metricsCfg)

	if metricsManager.Enabled() {
		go func() {
			log.Info("Starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := metricsManager.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				log.Error("Metrics server error", "error", err)
			}
		}()
	}

	secureStore := vault.NewSecureStore(&cfg.Vault, store,
		vault.WithLogger(log),
		vault.WithMetrics(metricsManager),
	)
	if err := secureStore.Start(ctx); err != nil {
		log.Error("Failed to start secure store", "error", err)
		os.Exit(1)
	}

	// Hot-reload log level and purge interval on config file changes.
	watcher := startWatcher(ctx, *configPath, cfg, log)
	if watcher != nil {
		defer func() {
			if err := watcher.Stop(); err != nil {
				log.Error("Error stopping config watcher", "error", err)
			}
		}()
	}

	log.Info("memvault is running",
		"storage", cfg.Storage.Type,
		"metrics_port", cfg.Metrics.Port,
		"purge_interval", cfg.Vault.PurgeInterval,
	)
	log.Info("Press Ctrl+C to stop")

	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", "signal", sig)
	case <-ctx.Done():
		log.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Info("Stopping secure store")
	if err := secureStore.Stop(shutdownCtx); err != nil {
		log.Error("Error during secure store shutdown", "error", err)
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error shutting down tracing", "error", err)
	}

	log.Info("memvault stopped gracefully")
}

// openStore builds the configured storage backend and returns it with a
// close function for the resources it owns.
func openStore(cfg *config.Config, log logger.Logger) (vault.Store, func() error, error) {
	switch cfg.Storage.Type {
	case "badger":
		opts := badgerdb.DefaultOptions(cfg.Storage.Badger.Path).
			WithSyncWrites(cfg.Storage.Badger.SyncWrites).
			WithLogger(nil)
		if cfg.Storage.Badger.ValueLogFileSize > 0 {
			opts = opts.WithValueLogFileSize(cfg.Storage.Badger.ValueLogFileSize)
		}
		if cfg.Storage.Badger.NumVersionsToKeep > 0 {
			opts = opts.WithNumVersionsToKeep(cfg.Storage.Badger.NumVersionsToKeep)
		}
		db, err := badgerdb.Open(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("open badger database: %w", err)
		}
		log.Info("Initialized Badger storage", "path", cfg.Storage.Badger.Path)
		return vault.NewBadgerStore(db), db.Close, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Address,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Storage.Redis.Address, err)
		}
		log.Info("Initialized Redis storage", "address", cfg.Storage.Redis.Address)
		return vault.NewRedisStore(client, cfg.Storage.Redis.KeyPrefix), client.Close, nil

	case "memory":
		log.Info("Initialized memory storage")
		return vault.NewMemoryStore(), func() error { return nil }, nil

	default:
		log.Warn("Unknown storage type, using memory storage", "type", cfg.Storage.Type)
		return vault.NewMemoryStore(), func() error { return nil }, nil
	}
}

// startWatcher wires config hot reload when a config file is in use.
// Returns nil when no file path was given.
func startWatcher(ctx context.Context, configPath string, cfg *config.Config, log logger.Logger) *config.Watcher {
	if configPath == "" {
		return nil
	}

	watcher, err := config.NewWatcher(configPath, config.NewLoader())
	if err != nil {
		log.Warn("Config hot reload unavailable", "error", err)
		return nil
	}

	current := config.ExtractHotReloadable(cfg)
	watcher.OnChange(func(next *config.Config) {
		reloaded := config.ExtractHotReloadable(next)
		if !current.Changed(reloaded) {
			return
		}
		if reloaded.LogLevel != current.LogLevel {
			logger.Global().SetLevel(logger.ParseLevel(reloaded.LogLevel))
			log.Info("Log level changed", "level", reloaded.LogLevel)
		}
		if reloaded.PurgeInterval != current.PurgeInterval {
			log.Info("Purge interval change requires restart",
				"current", current.PurgeInterval, "new", reloaded.PurgeInterval)
		}
		if reloaded.AuditEnabled != current.AuditEnabled {
			log.Info("Audit toggle change requires restart",
				"current", current.AuditEnabled, "new", reloaded.AuditEnabled)
		}
		current = reloaded
	})

	go func() {
		if err := watcher.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("Config watcher stopped", "error", err)
		}
	}()
	log.Info("Watching configuration for changes", "path", configPath)
	return watcher
}

func buildOverrides() map[string]interface{} {
	overrides := make(map[string]interface{})

	if *storageType != "" {
		overrides["storage.type"] = *storageType
	}
	if *dataPath != "" {
		overrides["storage.badger.path"] = *dataPath
	}
	if *logLevel != "" {
		overrides["log.level"] = *logLevel
	}
	if *debugMode {
		overrides["app.debug"] = true
	}

	return overrides
}

func printVersion() {
	fmt.Printf("memvault - Secure Encrypted Memory Store\n")
	fmt.Printf("Version:    %s\n", version.Version)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
	fmt.Printf("Go Version: %s\n", version.GoVersion)
}

func printHelp() {
	fmt.Printf("memvault - Per-user encrypted memory store for assistant long-term memories\n\n")
	fmt.Printf("Usage: memvaultd [options]\n\n")
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  memvaultd                                  # Run with default config\n")
	fmt.Printf("  memvaultd -config config.yaml              # Use specific config file\n")
	fmt.Printf("  memvaultd -storage memory -log-level debug # Override specific options\n")
	fmt.Printf("  memvaultd -version                         # Print version info\n")
}
