package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		json     bool
		debug    bool
		encoding string
		level    zapcore.Level
	}{
		{name: "console info", encoding: "console", level: zapcore.InfoLevel},
		{name: "json debug", json: true, debug: true, encoding: "json", level: zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config(tt.json, tt.debug)
			if cfg.Encoding != tt.encoding {
				t.Fatalf("expected %s encoding, got %s", tt.encoding, cfg.Encoding)
			}
			if cfg.Level.Level() != tt.level {
				t.Fatalf("expected %s level, got %s", tt.level, cfg.Level.Level())
			}
			if cfg.DisableCaller == tt.debug {
				t.Fatalf("caller output should follow debug=%v", tt.debug)
			}
			if cfg.EncoderConfig.MessageKey != "step" {
				t.Fatalf("unexpected message key %q", cfg.EncoderConfig.MessageKey)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	logger, err := New(true, false)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug must be disabled without the debug flag")
	}
}
