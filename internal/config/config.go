package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pubcask/pubcask/pkg/bytesize"
	"github.com/pubcask/pubcask/pkg/duration"
	"github.com/pubcask/pubcask/pkg/logger"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Publish PublishConfig `mapstructure:"publish"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`
	DataDir string `mapstructure:"data_dir"`
}

type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	RemoteURL   string `mapstructure:"remote_url"`
	RemoteToken string `mapstructure:"remote_token"`
}

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

type PublishConfig struct {
	SessionTTL    string          `mapstructure:"session_ttl"`
	MaxUploadSize string          `mapstructure:"max_upload_size"`
	RateLimit     RateLimitConfig `mapstructure:"rate_limit"`

	// Parsed forms of the raw strings above, populated by Load.
	SessionTTLDur  time.Duration `mapstructure:"-"`
	MaxUploadBytes int64         `mapstructure:"-"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Rate    float64 `mapstructure:"rate"`
	Burst   int     `mapstructure:"burst"`
	Window  string  `mapstructure:"window"`

	WindowDur time.Duration `mapstructure:"-"`
}

type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Secret  string `mapstructure:"secret"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

func Load() (*Config, error) {
	var cfg Config

	// Set defaults
	viper.SetDefault("server.port", 4040)
	viper.SetDefault("server.data_dir", "./data")
	viper.SetDefault("storage.backend", "fs")
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("publish.session_ttl", "1h")
	viper.SetDefault("publish.max_upload_size", "100MB")
	viper.SetDefault("publish.rate_limit.enabled", false)
	viper.SetDefault("publish.rate_limit.rate", 1.0)
	viper.SetDefault("publish.rate_limit.burst", 20)
	viper.SetDefault("publish.rate_limit.window", "1m")
	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("logging.level", "info")

	if err := viper.UnmarshalKey("server", &cfg.Server); err != nil {
		return nil, fmt.Errorf("unable to decode server config: %v", err)
	}
	if err := viper.UnmarshalKey("storage", &cfg.Storage); err != nil {
		return nil, fmt.Errorf("unable to decode storage config: %v", err)
	}
	if err := viper.UnmarshalKey("cache", &cfg.Cache); err != nil {
		return nil, fmt.Errorf("unable to decode cache config: %v", err)
	}
	if err := viper.UnmarshalKey("publish", &cfg.Publish); err != nil {
		return nil, fmt.Errorf("unable to decode publish config: %v", err)
	}
	if err := viper.UnmarshalKey("auth", &cfg.Auth); err != nil {
		return nil, fmt.Errorf("unable to decode auth config: %v", err)
	}
	if err := viper.UnmarshalKey("logging", &cfg.Logging); err != nil {
		return nil, fmt.Errorf("unable to decode logging config: %v", err)
	}

	// Validate storage backend
	switch cfg.Storage.Backend {
	case "fs":
		// data_dir already has a default
	case "remote":
		if cfg.Storage.RemoteURL == "" {
			return nil, fmt.Errorf("storage.remote_url is required with the remote backend")
		}
		if strings.Contains(cfg.Storage.RemoteURL, " ") || !strings.Contains(cfg.Storage.RemoteURL, "://") {
			return nil, fmt.Errorf("storage.remote_url must be a full URL (e.g. 'https://artifacts.example.com/pub')")
		}
	default:
		return nil, fmt.Errorf("storage.backend must be one of: fs, remote")
	}

	ttl, err := duration.Parse(cfg.Publish.SessionTTL)
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("publish.session_ttl must be a positive duration (e.g. '1h', '2d')")
	}
	cfg.Publish.SessionTTLDur = ttl

	size, err := bytesize.Parse(cfg.Publish.MaxUploadSize)
	if err != nil || size <= 0 {
		return nil, fmt.Errorf("publish.max_upload_size must be a positive size (e.g. '100MB')")
	}
	cfg.Publish.MaxUploadBytes = size

	if cfg.Publish.RateLimit.Enabled {
		window, err := duration.Parse(cfg.Publish.RateLimit.Window)
		if err != nil || window <= 0 {
			return nil, fmt.Errorf("publish.rate_limit.window must be a positive duration")
		}
		if cfg.Publish.RateLimit.Burst <= 0 {
			return nil, fmt.Errorf("publish.rate_limit.burst must be positive")
		}
		cfg.Publish.RateLimit.WindowDur = window
	}

	// Validate auth config
	if cfg.Auth.Enabled && cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth enabled but auth.secret not provided")
	}

	// The advertised base URL defaults to the bind address
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
		logger.Debug("Config had empty base_url, using default", "base_url", cfg.Server.BaseURL)
	}
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")

	return &cfg, nil
}
