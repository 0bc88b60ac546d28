package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config is read once at startup and passed by value to constructors.
type Config struct {
	JWTSecret        string   `env:"JWT_SECRET" env-required:"true"`
	DatabaseURL      string   `env:"DATABASE_URL"`
	HTTPAddr         string   `env:"HTTP_ADDR" env-default:":5000"`
	TokenTTL         Duration `env:"TOKEN_TTL" env-default:"24h"`
	EnforceOwnership bool     `env:"ENFORCE_OWNERSHIP" env-default:"false"`
	RedisURL         string   `env:"REDIS_URL"`
	RedisTTL         Duration `env:"REDIS_TTL" env-default:"60s"`
	LogLevel         string   `env:"LOG_LEVEL" env-default:"info"`
}

var (
	ErrJWTSecretMissing   = errors.New("JWT_SECRET is required")
	ErrDatabaseURLMissing = errors.New("DATABASE_URL is required")
)

// Load reads the environment. Call Validate after applying flag overrides.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrJWTSecretMissing
	}
	if c.DatabaseURL == "" {
		return ErrDatabaseURLMissing
	}
	if _, err := c.LevelOption(); err != nil {
		return err
	}
	return nil
}

// LevelOption maps LOG_LEVEL onto a go-kit level filter.
func (c Config) LevelOption() (level.Option, error) {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return level.AllowDebug(), nil
	case "", "info":
		return level.AllowInfo(), nil
	case "warn", "warning":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	}
	return nil, fmt.Errorf("LOG_LEVEL %q must be debug, info, warn or error", c.LogLevel)
}

// Duration accepts Go durations ("90s", "24h") or a bare number of seconds.
type Duration time.Duration

func (d *Duration) SetValue(s string) error {
	v, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("duration must be like 10s, 5m or a number of seconds: %w", err)
	}
	return d, nil
}
