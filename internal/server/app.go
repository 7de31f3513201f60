// Package server assembles the application: configuration, storage
// backend, manifest cache, session store and the protocol engine.
package server

import (
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/pubcask/pubcask/internal/cache"
	"github.com/pubcask/pubcask/internal/config"
	"github.com/pubcask/pubcask/internal/registry"
	"github.com/pubcask/pubcask/internal/session"
	"github.com/pubcask/pubcask/internal/storage"
	"github.com/pubcask/pubcask/pkg/kv"
	"github.com/pubcask/pubcask/pkg/logger"
)

// App bundles everything a running server needs.
type App struct {
	Config    *config.Config
	Store     storage.ArtifactStore
	Cache     cache.ManifestCache
	Sessions  *session.Store
	Registry  *registry.Service
	Limiter   *kv.PublishLimiter // nil when rate limiting is disabled
	StartTime time.Time
}

// NewServerApp loads configuration and wires the application together.
func NewServerApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.GetLogger().SetLogLevel(cfg.Logging.Level)
	logger.GetLogger().ConfigureFromEnv()

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	manifests, err := newCache(cfg)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(cfg.Publish.SessionTTLDur)

	limiter, err := newLimiter(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:    cfg,
		Store:     store,
		Cache:     manifests,
		Sessions:  sessions,
		Registry:  registry.NewService(store, sessions, manifests, cfg.Server.BaseURL),
		Limiter:   limiter,
		StartTime: time.Now(),
	}, nil
}

func newStore(cfg *config.Config) (storage.ArtifactStore, error) {
	switch cfg.Storage.Backend {
	case "remote":
		logger.Info("Using remote artifact registry", "url", cfg.Storage.RemoteURL)
		return storage.NewRemoteStore(cfg.Storage.RemoteURL, storage.StaticToken(cfg.Storage.RemoteToken)), nil
	default:
		logger.Info("Using filesystem artifact store", "dir", cfg.Server.DataDir)
		return storage.NewFileStore(cfg.Server.DataDir)
	}
}

func newCache(cfg *config.Config) (cache.ManifestCache, error) {
	if !cfg.Cache.Enabled {
		return cache.NoopCache{}, nil
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		dir = filepath.Join(cfg.Server.DataDir, "cache")
	}
	return cache.NewStarskeyCache(dir)
}

func newLimiter(cfg *config.Config) (*kv.PublishLimiter, error) {
	rl := cfg.Publish.RateLimit
	if !rl.Enabled {
		return nil, nil
	}
	dir := filepath.Join(cfg.Server.DataDir, "ratelimit")
	return kv.NewPublishLimiter(dir, rl.Rate, rl.Burst, rl.WindowDur)
}

// Close releases background resources owned by the app.
func (a *App) Close() error {
	a.Sessions.Close()
	if a.Limiter != nil {
		if err := a.Limiter.Close(); err != nil {
			logger.Warn("Failed to close rate limiter", "error", err)
		}
	}
	return a.Cache.Close()
}

// GetUptime returns how long the app has been running.
func (a *App) GetUptime() string {
	return time.Since(a.StartTime).String()
}
