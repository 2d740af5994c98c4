package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName        = "Hawiyya"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultTokenTTL       = 24 * time.Hour
	defaultCodeLength     = 4
	defaultCodeWindow     = 10 * time.Minute
	defaultInboxCapacity  = 10
	defaultLoginPerMin    = 5
	defaultIdempotencyTTL = 24 * time.Hour
	defaultShutdownDelay  = 10 * time.Second
)

// Config captures application runtime configuration loaded from
// environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	JWTSecret      string
	PasswordSalt   string
	TokenTTL       time.Duration
	CodeLength     int
	CodeWindow     time.Duration
	InboxCapacity  int
	LoginPerMin    int
	IdempotencyTTL time.Duration
	ShutdownPeriod time.Duration
}

// Load reads configuration from the environment, honoring a local .env
// file when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		PasswordSalt:   os.Getenv("PASSWORD_SALT"),
		TokenTTL:       defaultTokenTTL,
		CodeLength:     defaultCodeLength,
		CodeWindow:     defaultCodeWindow,
		InboxCapacity:  defaultInboxCapacity,
		LoginPerMin:    defaultLoginPerMin,
		IdempotencyTTL: defaultIdempotencyTTL,
		ShutdownPeriod: defaultShutdownDelay,
	}

	var err error
	if cfg.TokenTTL, err = envDuration("TOKEN_TTL", cfg.TokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.CodeWindow, err = envDuration("VERIFICATION_CODE_WINDOW", cfg.CodeWindow); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = envDuration("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = envDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.CodeLength, err = envInt("VERIFICATION_CODE_LENGTH", cfg.CodeLength); err != nil {
		return Config{}, err
	}
	if cfg.InboxCapacity, err = envInt("NOTIFICATION_INBOX_CAPACITY", cfg.InboxCapacity); err != nil {
		return Config{}, err
	}
	if cfg.LoginPerMin, err = envInt("LOGIN_RATE_LIMIT_PER_MIN", cfg.LoginPerMin); err != nil {
		return Config{}, err
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDev() {
			return Config{}, fmt.Errorf("JWT_SECRET must be set when APP_ENV=%s", cfg.AppEnv)
		}
		cfg.JWTSecret = "dev-secret"
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development environment, where
// missing Postgres/Redis fall back to in-memory backends.
func (c Config) IsDev() bool {
	switch c.AppEnv {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
