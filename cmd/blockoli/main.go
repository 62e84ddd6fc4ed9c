// Command blockoli runs the code block indexing and similarity search engine,
// either as an HTTP API server or as an MCP stdio server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/getAsterisk/blockoli/internal/config"
	"github.com/getAsterisk/blockoli/internal/embedder"
	"github.com/getAsterisk/blockoli/internal/index"
	"github.com/getAsterisk/blockoli/internal/indexer"
	"github.com/getAsterisk/blockoli/internal/mcp"
	"github.com/getAsterisk/blockoli/internal/searcher"
	"github.com/getAsterisk/blockoli/internal/server"
	"github.com/getAsterisk/blockoli/internal/storage"
	"github.com/getAsterisk/blockoli/internal/watcher"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	mcpMode := flag.Bool("mcp", false, "serve the Model Context Protocol over stdio instead of HTTP")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s (storage: %s)\n", mcp.ServerName, mcp.ServerVersion, storage.BuildMode)
		return
	}

	// A .env file is optional; real environment variables win
	_ = godotenv.Load()

	if err := run(*configPath, *mcpMode); err != nil {
		fmt.Fprintf(os.Stderr, "blockoli: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, mcpMode bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	emb, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	defer func() { _ = emb.Close() }()

	logger.Info("engine configured",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("driver", storage.DriverName),
		zap.String("provider", emb.Provider()),
		zap.Int("dimension", emb.Dimension()))

	idx := indexer.New(store, emb, logger)
	trees := index.NewCache()
	srch := searcher.New(store, emb, trees, logger)

	if mcpMode {
		return mcp.NewServer(store, idx, srch, logger).Serve(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Watch.Enabled {
		if err := startWatcher(ctx, cfg, store, idx, logger); err != nil {
			return err
		}
	}

	srv := server.New(store, idx, srch, cfg, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.Storage.DatabasePath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func newEmbedder(cfg *config.Config) (embedder.Embedder, error) {
	if cfg.Embedding.Provider == "" {
		return embedder.NewFromEnv()
	}
	return embedder.New(embedder.Config{
		Provider:  cfg.Embedding.Provider,
		APIKey:    apiKeyFor(cfg.Embedding.Provider),
		CacheSize: cfg.Embedding.CacheSize,
	})
}

func apiKeyFor(provider string) string {
	switch provider {
	case embedder.ProviderJina:
		return os.Getenv(embedder.EnvJinaAPIKey)
	case embedder.ProviderOpenAI:
		return os.Getenv(embedder.EnvOpenAIAPIKey)
	default:
		return ""
	}
}

// startWatcher begins auto-reindexing every project that has a known root.
func startWatcher(ctx context.Context, cfg *config.Config, store storage.Store, idx *indexer.Indexer, logger *zap.Logger) error {
	idxCfg := &indexer.Config{
		Workers:       cfg.Indexing.Workers,
		IncludeTests:  cfg.Indexing.IncludeTestsOrDefault(),
		IncludeVendor: cfg.Indexing.IncludeVendor,
	}
	w := watcher.New(idx, idxCfg, logger,
		watcher.WithDebounce(time.Duration(cfg.Watch.Debounce)*time.Millisecond),
		watcher.WithRecursive(cfg.Watch.RecursiveOrDefault()))
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	projects, err := store.ListProjects(ctx)
	if err != nil {
		return err
	}
	for _, p := range projects {
		if p.RootPath == "" {
			continue
		}
		if err := w.Watch(p.Name, p.RootPath); err != nil {
			logger.Warn("failed to watch project root",
				zap.String("project", p.Name),
				zap.String("root", p.RootPath),
				zap.Error(err))
		}
	}
	return nil
}
