package shared

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestGenerateID(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		id := GenerateID()
		if !IsUUID(id) {
			t.Fatalf("expected uuid, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}

	if IsUUID("1712345678901") {
		t.Error("timestamp-style id should not parse as uuid")
	}
}

func TestLogger(t *testing.T) {
	t.Run("NewLogger writes to buffer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		logger.Info("hello", "component", "test")
		if !strings.Contains(buf.String(), "hello") {
			t.Errorf("expected log output, got %q", buf.String())
		}
	})

	t.Run("WithLogger adds fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "component", "store")
		logger.Info("saved")
		if !strings.Contains(buf.String(), "component=store") {
			t.Errorf("expected component field, got %q", buf.String())
		}
	})

	t.Run("SetLogLevel filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		SetLogLevel(logger, log.ErrorLevel)
		logger.Info("quiet")
		if buf.Len() != 0 {
			t.Errorf("expected no output, got %q", buf.String())
		}
	})

	t.Run("NewFileLogger creates directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "tui.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("failed to create file logger: %v", err)
		}
		logger.Info("written")
	})
}

func TestParseLogLevel(t *testing.T) {
	tt := []struct {
		name    string
		level   string
		want    log.Level
		wantErr bool
	}{
		{name: "empty defaults to info", level: "", want: log.InfoLevel},
		{name: "debug", level: "debug", want: log.DebugLevel},
		{name: "warn with spaces", level: " warn ", want: log.WarnLevel},
		{name: "unknown", level: "chatty", want: log.InfoLevel, wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseLogLevel(tc.level)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseLogLevel() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if got != tc.want {
				t.Errorf("ParseLogLevel() = %v, want %v", got, tc.want)
			}
		})
	}
}
