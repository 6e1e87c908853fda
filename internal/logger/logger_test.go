package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "shapetool.log")

	log := New(Options{Level: "debug", File: logFile})
	log.Info("model loaded", zap.Int("components", 5))
	if err := log.Sync(); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "model loaded") {
		t.Errorf("log file does not contain the message: %s", data)
	}
}

func TestNew_NoSinksIsNop(t *testing.T) {
	log := New(Options{Level: "info"})
	// Must not panic and must not write anywhere.
	log.Info("discarded")
	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("logger without sinks should be a no-op")
	}
}

func TestNew_ConsoleCoreEnabled(t *testing.T) {
	log := New(Options{Level: "info", Console: true})
	if !log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("console logger should have an enabled core")
	}
}
