package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "kintai/internal/errors"
)

// Config holds application level configuration loaded from environment variables.
// It is built once at startup and never mutated afterwards.
type Config struct {
	AppEnv         string
	ServerPort     string
	DBDriver       string
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	JWTSecret      string
	TokenTTL       time.Duration
	BcryptCost     int
	LogLevel       string
	SentryDSN      string
}

// Load builds Config from the environment, reading an optional .env file first.
// Every missing or invalid variable is reported in a single ErrConfiguration.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds Config from an arbitrary lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	l := loader{getenv: getenv}

	cfg := &Config{
		AppEnv:         l.str("APP_ENV", "dev"),
		ServerPort:     l.str("PORT", "8080"),
		DBDriver:       strings.ToLower(l.str("DB_DRIVER", "postgres")),
		DatabaseURL:    l.required("DATABASE_URL"),
		DBMaxOpenConns: l.int("DB_MAX_OPEN_CONNS", 20, 1),
		DBMaxIdleConns: l.int("DB_MAX_IDLE_CONNS", 5, 0),
		RedisAddr:      l.str("REDIS_ADDR", ""),
		RedisDB:        l.int("REDIS_DB", 0, 0),
		RedisPass:      getenv("REDIS_PASSWORD"),
		JWTSecret:      l.required("JWT_SECRET"),
		BcryptCost:     l.int("BCRYPT_COST", 10, 4),
		LogLevel:       l.str("LOG_LEVEL", "info"),
		SentryDSN:      getenv("SENTRY_DSN"),
	}

	if raw := l.required("JWT_EXPIRES_IN"); raw != "" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || secs < 0 {
			l.invalid = append(l.invalid, "JWT_EXPIRES_IN")
		} else {
			cfg.TokenTTL = time.Duration(secs) * time.Second
		}
	}

	if port, err := strconv.Atoi(cfg.ServerPort); err != nil || port <= 0 || port > 65535 {
		l.invalid = append(l.invalid, "PORT")
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "mysql" {
		l.invalid = append(l.invalid, "DB_DRIVER")
	}
	if cfg.AppEnv != "dev" && cfg.AppEnv != "prod" {
		l.invalid = append(l.invalid, "APP_ENV")
	}

	if len(l.missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", apperrors.ErrConfiguration, strings.Join(l.missing, ", "))
	}
	if len(l.invalid) > 0 {
		return nil, fmt.Errorf("%w: invalid %s", apperrors.ErrConfiguration, strings.Join(l.invalid, ", "))
	}
	return cfg, nil
}

// IsProd returns true if running in production mode.
func (c *Config) IsProd() bool {
	return c.AppEnv == "prod"
}

type loader struct {
	getenv  func(string) string
	missing []string
	invalid []string
}

func (l *loader) str(key, def string) string {
	if v := strings.TrimSpace(l.getenv(key)); v != "" {
		return v
	}
	return def
}

func (l *loader) required(key string) string {
	v := strings.TrimSpace(l.getenv(key))
	if v == "" {
		l.missing = append(l.missing, key)
	}
	return v
}

func (l *loader) int(key string, def, atLeast int) int {
	v := strings.TrimSpace(l.getenv(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < atLeast {
		l.invalid = append(l.invalid, key)
		return def
	}
	return parsed
}
