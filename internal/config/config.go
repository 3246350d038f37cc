package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port           string
	DatabaseURL    string
	SessionSecret  string
	MemberCode     string
	SessionStore   string
	RedisURL       string
	SessionTTL     time.Duration
	CookieSecure   bool
	RequestTimeout time.Duration

	DBMaxOpen     int
	DBMaxIdle     int
	DBMaxLifetime time.Duration

	LogLevel  string
	LogFormat string
}

// LoadDotEnv pulls an optional .env file into the process environment.
// Values already present in the environment win.
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}

// Load reads configuration from the environment and validates required values.
func Load() (Config, error) {
	cfg := Config{
		Port:          getenv("PORT", "3000"),
		DatabaseURL:   getenv("DATABASE_URL", getenv("DB_URI", "")),
		SessionSecret: getenv("SESSION_SECRET", ""),
		MemberCode:    getenv("MEMBER_CODE", ""),
		SessionStore:  strings.ToLower(getenv("SESSION_STORE", SessionStorePostgres)),
		RedisURL:      getenv("REDIS_URL", ""),
		CookieSecure:  getenv("COOKIE_SECURE", "false") == "true",
		LogLevel:      strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:     strings.ToLower(getenv("LOG_FORMAT", "text")),
	}

	var err error
	if cfg.SessionTTL, err = parseTTL(getenv("SESSION_TTL", "24h")); err != nil {
		return Config{}, fmt.Errorf("SESSION_TTL: %w", err)
	}
	if cfg.RequestTimeout, err = time.ParseDuration(getenv("REQUEST_TIMEOUT", "10s")); err != nil {
		return Config{}, fmt.Errorf("REQUEST_TIMEOUT: %w", err)
	}

	cfg.DBMaxOpen = atoi(getenv("DB_MAX_OPEN", "25"), 25)
	cfg.DBMaxIdle = atoi(getenv("DB_MAX_IDLE", "25"), 25)
	cfg.DBMaxLifetime = time.Duration(atoi(getenv("DB_MAX_LIFETIME", "300"), 300)) * time.Second // seconds

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET is required")
	}
	if cfg.MemberCode == "" {
		return Config{}, errors.New("MEMBER_CODE is required")
	}

	switch cfg.SessionStore {
	case SessionStorePostgres:
	case SessionStoreRedis:
		if cfg.RedisURL == "" {
			return Config{}, errors.New("REDIS_URL is required when SESSION_STORE=redis")
		}
	default:
		return Config{}, fmt.Errorf("unknown SESSION_STORE %q", cfg.SessionStore)
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return ":" + c.Port
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func atoi(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// Parses TTL such as "15m", "24h", "20s", "30" (minutes)
func parseTTL(ttlStr string) (time.Duration, error) {
	if strings.HasSuffix(ttlStr, "m") ||
		strings.HasSuffix(ttlStr, "h") ||
		strings.HasSuffix(ttlStr, "s") {
		d, err := time.ParseDuration(ttlStr)
		if err != nil {
			return 0, err
		}
		if d <= 0 {
			return 0, errors.New("must be positive")
		}
		return d, nil
	}

	// fallback: minutes
	min, err := strconv.Atoi(ttlStr)
	if err != nil {
		return 0, err
	}
	if min <= 0 {
		return 0, errors.New("must be positive")
	}
	return time.Duration(min) * time.Minute, nil
}
