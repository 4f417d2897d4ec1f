package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the sync service configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Etsy       EtsyConfig       `mapstructure:"etsy"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Shutdown   ShutdownConfig   `mapstructure:"shutdown"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port" validate:"gt=0,lte=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// TriggerPath is the route the scheduler POSTs to.
	TriggerPath string `mapstructure:"trigger_path" validate:"startswith=/"`
	// JWTSecret enables service-role bearer checks on the trigger when set.
	JWTSecret string `mapstructure:"jwt_secret"`
}

// DatabaseConfig contains database connection settings.
// URL takes precedence over the discrete fields when set; Password overrides
// the password embedded in URL.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode" validate:"oneof=disable require verify-full"`
}

// EtsyConfig contains marketplace API settings
type EtsyConfig struct {
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	TokenURL       string        `mapstructure:"token_url" validate:"required,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	PageLimit      int           `mapstructure:"page_limit" validate:"gt=0,lte=100"`
	RatePerSecond  float64       `mapstructure:"rate_per_second" validate:"gt=0"`
}

// SyncConfig contains reconciliation job settings
type SyncConfig struct {
	Provider   string        `mapstructure:"provider" validate:"required"`
	Workers    int           `mapstructure:"workers" validate:"gt=0"`
	JobTimeout time.Duration `mapstructure:"job_timeout" validate:"gt=0"`
	// Interval enables the in-process periodic run when non-zero.
	Interval   time.Duration `mapstructure:"interval"`
	RunOnStart bool          `mapstructure:"run_on_start"`
}

// RedisConfig contains settings for the shared token-refresh lock
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format" validate:"oneof=json console"`
	OutputPath string `mapstructure:"output_path"`
}

// ShutdownConfig contains graceful shutdown settings
type ShutdownConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// envAliases maps config keys to the platform environment variables that may carry them.
var envAliases = map[string][]string{
	"database.url":      {"DATABASE_URL", "SUPABASE_DB_URL"},
	"database.password": {"DATABASE_PASSWORD", "SUPABASE_SERVICE_ROLE_KEY"},
	"server.jwt_secret": {"SUPABASE_JWT_SECRET"},
	"server.port":       {"PORT"},
	"redis.addr":        {"REDIS_ADDR"},
}

// Load loads configuration from an optional YAML file and environment variables.
// A .env file in the working directory is loaded first if present.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	for key, envs := range envAliases {
		if err := v.BindEnv(append([]string{key, strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.trigger_path", "/sync-marketplace-payments")
	v.SetDefault("server.jwt_secret", "")

	// Database defaults
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "postgres")
	v.SetDefault("database.ssl_mode", "disable")

	// Etsy defaults
	v.SetDefault("etsy.base_url", "https://api.etsy.com/v3")
	v.SetDefault("etsy.token_url", "https://api.etsy.com/v3/public/oauth/token")
	v.SetDefault("etsy.request_timeout", "15s")
	v.SetDefault("etsy.page_limit", 100)
	v.SetDefault("etsy.rate_per_second", 10)

	// Sync defaults
	v.SetDefault("sync.provider", "etsy")
	v.SetDefault("sync.workers", 4)
	v.SetDefault("sync.job_timeout", "2m")
	v.SetDefault("sync.interval", "0s")
	v.SetDefault("sync.run_on_start", false)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "30s")

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")

	// Shutdown defaults
	v.SetDefault("shutdown.timeout", "30s")
}

func validate(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s is invalid (%s)", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}
	if config.Database.URL == "" && config.Database.Host == "" {
		return fmt.Errorf("database.url or database.host is required")
	}
	if config.Database.URL != "" {
		if _, err := url.Parse(config.Database.URL); err != nil {
			return fmt.Errorf("database.url is invalid: %w", err)
		}
	}
	if config.Redis.Enabled && config.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}
