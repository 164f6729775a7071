package pubapi

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"github.com/spf13/viper"
)

// Config holds all configuration for a pubapi server.
type Config struct {
	Name        string `mapstructure:"name"`        // Site name used in the feed (default "Blog")
	URL         string `mapstructure:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `mapstructure:"description"` // Feed description

	Addr     string         `mapstructure:"addr"` // Listen address (default ":3000", or ":$PORT")
	Database DatabaseConfig `mapstructure:"db"`

	LogLevel        string `mapstructure:"log_level"`         // debug, info, warn, error, off (default "info")
	WritesPerMinute int    `mapstructure:"writes_per_minute"` // Per-IP write limit, negative disables (default 60)
	Debug           bool   `mapstructure:"debug"`
}

// DatabaseConfig selects and locates the storage backend.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" (default) or "postgres"
	Path   string `mapstructure:"path"`   // SQLite path (default "data/blog.db")
	DSN    string `mapstructure:"dsn"`    // PostgreSQL DSN
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":" + EnvOr("PORT", "3000")
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/blog.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.WritesPerMinute == 0 {
		c.WritesPerMinute = 60
	}
}

// LoadConfig reads configuration from, in increasing priority: built-in
// defaults, an optional YAML file (configFile, or ./config.yaml), a .env
// file in the working directory, and PUBAPI_* environment variables
// (PUBAPI_DB_DRIVER, PUBAPI_DB_DSN, ...).
func LoadConfig(configFile string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("PUBAPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := Config{}
	defaults.setDefaults()
	v.SetDefault("name", defaults.Name)
	v.SetDefault("url", defaults.URL)
	v.SetDefault("description", "")
	v.SetDefault("addr", defaults.Addr)
	v.SetDefault("db.driver", defaults.Database.Driver)
	v.SetDefault("db.path", defaults.Database.Path)
	v.SetDefault("db.dsn", "")
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("writes_per_minute", defaults.WritesPerMinute)
	v.SetDefault("debug", false)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.setDefaults()
	if cfg.Database.Driver == "postgres" && cfg.Database.DSN == "" {
		return Config{}, fmt.Errorf("pubapi: db.dsn is required for the postgres driver")
	}
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithStore uses an already opened backend instead of opening one from
// Config.Database. The App takes ownership and closes it in Close.
func WithStore(s Backend) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLogLevel(level string) log.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
