package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestInitLogger_ValidLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  slog.Level
	}{
		{"debug", "debug", slog.LevelDebug},
		{"info", "info", slog.LevelInfo},
		{"warn", "warn", slog.LevelWarn},
		{"error", "error", slog.LevelError},
		{"upper case", "WARN", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := InitLogger(tt.level); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if GetLogger() == nil {
				t.Fatal("GetLogger() returned nil")
			}
			got, err := ParseLevel(tt.level)
			if err != nil || got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, %v", tt.level, got, err)
			}
		})
	}
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	if err := InitLogger("invalid"); err == nil {
		t.Error("expected error for invalid log level, got nil")
	}
}

func TestInitLoggerTo_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := InitLoggerTo(&buf, "warn"); err != nil {
		t.Fatal(err)
	}
	GetLogger().Info("hidden")
	GetLogger().Warn("shown", "frame", 3)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=shown frame=3") {
		t.Errorf("output = %q", out)
	}
}

func TestGetLogger_BeforeInit(t *testing.T) {
	globalLogger = nil

	logger := GetLogger()
	if logger != slog.Default() {
		t.Error("GetLogger() should return slog.Default() when not initialized")
	}
}

func TestGetLogger_AfterInit(t *testing.T) {
	if err := InitLogger("info"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if GetLogger() != globalLogger {
		t.Error("GetLogger() should return the initialized logger")
	}
}
