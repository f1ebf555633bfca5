package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime settings for the store server and CLI tools.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Log      LogConfig
	Redis    RedisConfig
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string
	MaxConns int32
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port           string
	AllowedOrigins string // comma-separated; empty disables CORS
	MaxBodyBytes   int64
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// RedisConfig holds the optional lookup cache settings. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Load reads configuration with the following priority (highest first):
//  1. STORE_-prefixed environment variables (STORE_DATABASE_URL, STORE_SERVER_PORT, ...)
//  2. config.toml in the working directory
//  3. built-in defaults
//
// A .env file, if present, is loaded into the environment first. The plain DATABASE_URL,
// SERVER_PORT and ALLOWED_ORIGINS variables are honoured as fallbacks.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("STORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	_ = v.BindEnv("database.url", "STORE_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("server.port", "STORE_SERVER_PORT", "SERVER_PORT")
	_ = v.BindEnv("server.allowed_origins", "STORE_SERVER_ALLOWED_ORIGINS", "ALLOWED_ORIGINS")

	cfg := &Config{
		Database: DatabaseConfig{
			URL:      v.GetString("database.url"),
			MaxConns: v.GetInt32("database.max_conns"),
		},
		Server: ServerConfig{
			Port:           v.GetString("server.port"),
			AllowedOrigins: v.GetString("server.allowed_origins"),
			MaxBodyBytes:   v.GetInt64("server.max_body_bytes"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 30*time.Second)
}

// Validate checks that required settings are present and well-formed.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url is not set (STORE_DATABASE_URL or DATABASE_URL)")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server port is not set")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", c.Log.Format)
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("redis ttl cannot be negative")
	}
	return nil
}

// CacheEnabled reports whether a Redis address was configured.
func (c *Config) CacheEnabled() bool {
	return c.Redis.Addr != ""
}
