package utils

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Store    StoreConfig
	Lock     LockConfig
	Redis    RedisConfig
	Token    TokenConfig
	JWT      JWTConfig
	Metrics  MetricsConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string

	// PasswordCost is the bcrypt cost; 0 selects bcrypt.DefaultCost.
	PasswordCost int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

// StoreConfig selects the document store backend: "postgres" or "memory".
type StoreConfig struct {
	Driver string
}

// LockConfig selects the lock backend: "local", "postgres" or "redis".
// MaxConns sizes the separate pool behind postgres advisory locks.
type LockConfig struct {
	Driver   string
	TTL      time.Duration
	Wait     time.Duration
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// TokenConfig holds the key that signs version tokens.
type TokenConfig struct {
	Secret string
}

// JWTConfig holds the key that verifies caller bearer tokens. An empty
// secret disables bearer authentication.
type JWTConfig struct {
	Secret string
}

type MetricsConfig struct {
	Enabled bool
}

// LoadConfig reads path (a dotenv file) when it exists and lets
// environment variables override every key.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = ".env"
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")

	// Set defaults
	v.SetDefault("APP_NAME", "cinema-core")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("PASSWORD_COST", 0)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("STORE_DRIVER", "postgres")
	v.SetDefault("LOCK_DRIVER", "postgres")
	v.SetDefault("LOCK_TTL", "10s")
	v.SetDefault("LOCK_WAIT", "5s")
	v.SetDefault("LOCK_MAX_CONNS", 4)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("METRICS_ENABLED", true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	v.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    v.GetString("APP_NAME"),
			Port:    v.GetString("PORT"),
			Debug:   v.GetBool("DEBUG"),
			LogPath: v.GetString("LOG_PATH"),

			PasswordCost: v.GetInt("PASSWORD_COST"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("STORE_DRIVER")),
		},
		Lock: LockConfig{
			Driver:   strings.ToLower(v.GetString("LOCK_DRIVER")),
			TTL:      v.GetDuration("LOCK_TTL"),
			Wait:     v.GetDuration("LOCK_WAIT"),
			MaxConns: v.GetInt32("LOCK_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Token: TokenConfig{
			Secret: v.GetString("VERSION_TOKEN_SECRET"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
	}

	if config.Token.Secret == "" {
		return nil, errors.New("VERSION_TOKEN_SECRET is required")
	}

	return config, nil
}
