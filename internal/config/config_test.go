package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := parse(lookupFrom(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg != Default() {
		t.Fatalf("expected defaults %+v, got %+v", Default(), cfg)
	}
}

func TestParseOverrides(t *testing.T) {
	cfg, err := parse(lookupFrom(map[string]string{
		"CALC_ADDR":           "127.0.0.1:9000",
		"CALC_LOG_LEVEL":      "debug",
		"CALC_OTEL_ENABLED":   "false",
		"CALC_SESSION_TTL":    "5m",
		"CALC_SWEEP_INTERVAL": "10s",
		"CALC_MAX_INPUTS":     "12",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Config{
		Addr:          "127.0.0.1:9000",
		LogLevel:      zapcore.DebugLevel,
		OTelEnabled:   false,
		SessionTTL:    5 * time.Minute,
		SweepInterval: 10 * time.Second,
		MaxInputs:     12,
	}
	if cfg != want {
		t.Fatalf("expected %+v, got %+v", want, cfg)
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{key: "CALC_LOG_LEVEL", value: "loud"},
		{key: "CALC_OTEL_ENABLED", value: "maybe"},
		{key: "CALC_SESSION_TTL", value: "forever"},
		{key: "CALC_SWEEP_INTERVAL", value: "0s"},
		{key: "CALC_MAX_INPUTS", value: "-1"},
		{key: "CALC_MAX_INPUTS", value: "many"},
	}

	for _, tc := range tests {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			_, err := parse(lookupFrom(map[string]string{tc.key: tc.value}))
			if err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Fatalf("expected missing .env to be ignored, got %v", err)
		}
	})

	t.Run("does not override process env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("CALC_ADDR=:7000\nCALC_MAX_INPUTS=5\n"), 0o600); err != nil {
			t.Fatalf("writing .env: %v", err)
		}

		t.Setenv("CALC_ADDR", ":9999")
		t.Setenv("CALC_MAX_INPUTS", "")
		os.Unsetenv("CALC_MAX_INPUTS")

		if err := LoadDotEnv(path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg, err := FromEnv()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Addr != ":9999" {
			t.Fatalf("expected process env addr %q, got %q", ":9999", cfg.Addr)
		}
		if cfg.MaxInputs != 5 {
			t.Fatalf("expected max inputs 5 from .env, got %d", cfg.MaxInputs)
		}
	})
}
