package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultJWTSecret = "change-me-jwt-secret"

	BrokerMemory = "memory"
	BrokerRedis  = "redis"
)

// Config is the runtime configuration of the API process.
type Config struct {
	AppEnv      string `mapstructure:"APP_ENV"`
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	RealtimeBroker     string `mapstructure:"REALTIME_BROKER"`
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	CleanupInterval time.Duration `mapstructure:"CLEANUP_INTERVAL"`

	Notifications NotificationConfig `mapstructure:",squash"`
}

// NotificationConfig holds the tunables of the notification engine.
type NotificationConfig struct {
	SnapshotLimit         int           `mapstructure:"NOTIFICATION_SNAPSHOT_LIMIT"`
	PriorityAlertInterval time.Duration `mapstructure:"NOTIFICATION_PRIORITY_ALERT_INTERVAL"`
	FallbackPollInterval  time.Duration `mapstructure:"NOTIFICATION_FALLBACK_POLL_INTERVAL"`
	FallbackWindow        time.Duration `mapstructure:"NOTIFICATION_FALLBACK_WINDOW"`
	Retention             time.Duration `mapstructure:"NOTIFICATION_RETENTION"`
	SubscribeTimeout      time.Duration `mapstructure:"NOTIFICATION_SUBSCRIBE_TIMEOUT"`
	AdminCacheTTL         time.Duration `mapstructure:"NOTIFICATION_ADMIN_CACHE_TTL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "buildhub.db")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REALTIME_BROKER", BrokerMemory)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("CLEANUP_INTERVAL", "24h")

	v.SetDefault("NOTIFICATION_SNAPSHOT_LIMIT", 50)
	v.SetDefault("NOTIFICATION_PRIORITY_ALERT_INTERVAL", "30s")
	v.SetDefault("NOTIFICATION_FALLBACK_POLL_INTERVAL", "10s")
	v.SetDefault("NOTIFICATION_FALLBACK_WINDOW", "60s")
	v.SetDefault("NOTIFICATION_RETENTION", "720h")
	v.SetDefault("NOTIFICATION_SUBSCRIBE_TIMEOUT", "10s")
	v.SetDefault("NOTIFICATION_ADMIN_CACHE_TTL", "5m")
}

// Load reads .env (if present), an optional config.yaml and the environment.
// configFile may be empty.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	cfg.RealtimeBroker = strings.ToLower(strings.TrimSpace(cfg.RealtimeBroker))

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.CleanupInterval <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL must be > 0")
	}

	n := cfg.Notifications
	if n.SnapshotLimit <= 0 {
		return fmt.Errorf("NOTIFICATION_SNAPSHOT_LIMIT must be > 0")
	}
	if n.PriorityAlertInterval <= 0 {
		return fmt.Errorf("NOTIFICATION_PRIORITY_ALERT_INTERVAL must be > 0")
	}
	if n.FallbackPollInterval <= 0 {
		return fmt.Errorf("NOTIFICATION_FALLBACK_POLL_INTERVAL must be > 0")
	}
	if n.FallbackWindow <= 0 {
		return fmt.Errorf("NOTIFICATION_FALLBACK_WINDOW must be > 0")
	}
	if n.Retention <= 0 {
		return fmt.Errorf("NOTIFICATION_RETENTION must be > 0")
	}
	if n.SubscribeTimeout <= 0 {
		return fmt.Errorf("NOTIFICATION_SUBSCRIBE_TIMEOUT must be > 0")
	}
	// a zero TTL would cache the admin list forever
	if n.AdminCacheTTL <= 0 {
		return fmt.Errorf("NOTIFICATION_ADMIN_CACHE_TTL must be > 0")
	}

	switch cfg.RealtimeBroker {
	case BrokerMemory:
	case BrokerRedis:
		if cfg.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR must be set when REALTIME_BROKER=redis")
		}
	default:
		return fmt.Errorf("REALTIME_BROKER must be one of: memory, redis")
	}

	if isProdLike(cfg.AppEnv) && isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
		return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
	}
	return nil
}

// IsProduction reports whether the app runs in a production-like environment.
func (c *Config) IsProduction() bool {
	return isProdLike(c.AppEnv)
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}
