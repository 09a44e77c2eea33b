package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DBPath        string
	LogLevel      string
	LogFormat     string
	Env           string
	JWTSecret     string
	TokenTTL      time.Duration
	RedisAddr     string
	RedisPrefix   string
	CacheTTL      time.Duration
	StoreTimeout  time.Duration
	JoinRateLimit int
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port:        getEnv("LARDER_PORT", "8080"),
		DBPath:      getEnv("LARDER_DB_PATH", "larder.db"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		Env:         getEnv("APP_ENV", "development"),
		JWTSecret:   getEnv("AUTH_JWT_SECRET", ""),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisPrefix: getEnv("REDIS_PREFIX", "larder"),
	}

	var err error
	if cfg.TokenTTL, err = getDuration("AUTH_TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = getDuration("STORE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.JoinRateLimit, err = getInt("JOIN_RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate rejects configurations that are only safe for local development.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("AUTH_JWT_SECRET is required outside development")
		}
		c.JWTSecret = "dev-secret"
	}
	if c.JoinRateLimit <= 0 {
		return fmt.Errorf("JOIN_RATE_LIMIT must be positive, got %d", c.JoinRateLimit)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val, exists := os.LookupEnv(key)
	if !exists || val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultVal int) (int, error) {
	val, exists := os.LookupEnv(key)
	if !exists || val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
