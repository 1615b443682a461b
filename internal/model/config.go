package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	// Driver is "sqlite" or "mongo".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// Path is the SQLite database file.
	Path string `mapstructure:"path" yaml:"path"`

	MongoURI      string `mapstructure:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database" yaml:"mongo_database"`
}

// RedisConfig configures the cross-process change notifier.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// AuthConfig holds identity token verification settings.
type AuthConfig struct {
	// Secret enables HS256 verification when set.
	Secret string `mapstructure:"secret" yaml:"secret"`

	// JWKSURL enables RS256 verification against a key set.
	JWKSURL  string `mapstructure:"jwks_url" yaml:"jwks_url"`
	Issuer   string `mapstructure:"issuer" yaml:"issuer"`
	Audience string `mapstructure:"audience" yaml:"audience"`

	// Token is a signed identity token. When empty the keyring is used.
	Token string `mapstructure:"token" yaml:"token"`
}

// LogConfig controls the rotating log file.
type LogConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	Level      string `mapstructure:"level" yaml:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// BoardConfig tunes snapshot delivery.
type BoardConfig struct {
	// ResyncIntervalSec is how often a subscription refetches even
	// without a change notification.
	ResyncIntervalSec int `mapstructure:"resync_interval_sec" yaml:"resync_interval_sec"`

	// BreakerFailures is the number of consecutive store failures that
	// opens a collection's circuit breaker.
	BreakerFailures int `mapstructure:"breaker_failures" yaml:"breaker_failures"`
}

// ServerConfig configures the HTTP stream surface.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Redis  RedisConfig  `mapstructure:"redis" yaml:"redis"`
	Auth   AuthConfig   `mapstructure:"auth" yaml:"auth"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Board  BoardConfig  `mapstructure:"board" yaml:"board"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
}

// ConfigDir returns ~/.config/crafthub, falling back to the working
// directory when the home directory is unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "crafthub")
}

// DefaultConfigPath returns the default path for the configuration file.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		Store: StoreConfig{
			Driver:        "sqlite",
			Path:          filepath.Join(dir, "crafthub.db"),
			MongoDatabase: "crafthub",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Log: LogConfig{
			File:       filepath.Join(dir, "logs", "crafthub.log"),
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Board: BoardConfig{
			ResyncIntervalSec: 30,
			BreakerFailures:   3,
		},
		Server: ServerConfig{
			Addr: ":9000",
		},
	}
}

func setDefaults(v *viper.Viper, cfg *AppConfig) {
	v.SetDefault("store.driver", cfg.Store.Driver)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("store.mongo_uri", cfg.Store.MongoURI)
	v.SetDefault("store.mongo_database", cfg.Store.MongoDatabase)
	v.SetDefault("redis.enabled", cfg.Redis.Enabled)
	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.jwks_url", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.token", "")
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.max_size_mb", cfg.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", cfg.Log.MaxBackups)
	v.SetDefault("log.max_age_days", cfg.Log.MaxAgeDays)
	v.SetDefault("board.resync_interval_sec", cfg.Board.ResyncIntervalSec)
	v.SetDefault("board.breaker_failures", cfg.Board.BreakerFailures)
	v.SetDefault("server.addr", cfg.Server.Addr)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// CRAFTHUB_* environment variables override file values (for example
// CRAFTHUB_STORE_DRIVER). A missing file yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("crafthub")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Board.ResyncIntervalSec <= 0 {
		cfg.Board.ResyncIntervalSec = 30
	}
	if cfg.Board.BreakerFailures <= 0 {
		cfg.Board.BreakerFailures = 3
	}
	switch cfg.Store.Driver {
	case "sqlite", "mongo":
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("store", cfg.Store)
	v.Set("redis", cfg.Redis)
	v.Set("auth", cfg.Auth)
	v.Set("log", cfg.Log)
	v.Set("board", cfg.Board)
	v.Set("server", cfg.Server)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
