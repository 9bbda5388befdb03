package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

// Config holds the settings of the calculator API.
type Config struct {
	Addr          string
	LogLevel      zapcore.Level
	OTelEnabled   bool
	SessionTTL    time.Duration
	SweepInterval time.Duration
	MaxInputs     int
}

// Default returns the settings used when no environment overrides are set.
func Default() Config {
	return Config{
		Addr:          ":8080",
		LogLevel:      zapcore.InfoLevel,
		OTelEnabled:   true,
		SessionTTL:    30 * time.Minute,
		SweepInterval: time.Minute,
		MaxInputs:     1000,
	}
}

// LoadDotEnv loads environment variables from .env when present.
// Existing process environment variables are not overridden.
func LoadDotEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err == nil {
		return nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("load .env: %w", err)
}

// FromEnv builds a Config from the process environment.
func FromEnv() (Config, error) {
	return parse(os.LookupEnv)
}

func parse(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup("CALC_ADDR"); ok && v != "" {
		cfg.Addr = v
	}

	if v, ok := lookup("CALC_LOG_LEVEL"); ok && v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("CALC_LOG_LEVEL: %w", err)
		}
	}

	if v, ok := lookup("CALC_OTEL_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("CALC_OTEL_ENABLED: %w", err)
		}
		cfg.OTelEnabled = b
	}

	if v, ok := lookup("CALC_SESSION_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("CALC_SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}

	if v, ok := lookup("CALC_SWEEP_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("CALC_SWEEP_INTERVAL: %w", err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("CALC_SWEEP_INTERVAL: must be positive, got %s", d)
		}
		cfg.SweepInterval = d
	}

	if v, ok := lookup("CALC_MAX_INPUTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("CALC_MAX_INPUTS: %w", err)
		}
		if n < 0 {
			return Config{}, fmt.Errorf("CALC_MAX_INPUTS: must not be negative, got %d", n)
		}
		cfg.MaxInputs = n
	}

	return cfg, nil
}
