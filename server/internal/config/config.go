package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Stage string

const (
	StageDev  Stage = "dev"
	StageProd Stage = "prod"
)

const (
	defaultPort        = "8080"
	defaultIdleTimeout = 15 * time.Minute
)

type Config struct {
	Port             string
	Stage            Stage
	LogLevel         zerolog.Level
	MatchIdleTimeout time.Duration
	// DatabaseURL is empty when no result ledger is configured.
	DatabaseURL    string
	AllowedOrigins []string
}

// Load reads .env (outside prod) and then the process environment. Variables
// already set in the environment win over the file.
func Load() (Config, error) {
	if Stage(os.Getenv("STAGE")) != StageProd {
		if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading .env: %w", err)
		}
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		Port:             defaultPort,
		Stage:            StageDev,
		LogLevel:         zerolog.InfoLevel,
		MatchIdleTimeout: defaultIdleTimeout,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}

	if v := os.Getenv("STAGE"); v != "" {
		switch Stage(v) {
		case StageDev, StageProd:
			cfg.Stage = Stage(v)
		default:
			return Config{}, fmt.Errorf("STAGE must be %q or %q, got %q", StageDev, StageProd, v)
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		lvl, err := zerolog.ParseLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = lvl
	}

	if v := os.Getenv("MATCH_IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("MATCH_IDLE_TIMEOUT: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("MATCH_IDLE_TIMEOUT must be positive, got %s", d)
		}
		cfg.MatchIdleTimeout = d
	}

	for _, o := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	return cfg, nil
}

// Origins returns the websocket origin allow-list. Outside prod every origin
// is accepted.
func (c Config) Origins() []string {
	if c.Stage != StageProd {
		return nil
	}
	return c.AllowedOrigins
}

// NewLogger writes human-readable lines in dev and JSON otherwise.
func (c Config) NewLogger(w io.Writer) zerolog.Logger {
	if c.Stage == StageDev {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(c.LogLevel).With().Timestamp().Logger()
}
