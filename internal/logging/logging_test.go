package logging

import (
	"bytes"
	"encoding/json"
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
		{in: "debug", want: zapcore.DebugLevel},
		{in: " WARN ", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "verbose", want: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Fatalf("ParseLevel(%q) got=%v, want=%v", tt.in, got, tt.want)
		}
	}
}

func TestNewWritesJSONToConsoleAndFile(t *testing.T) {
	var console bytes.Buffer

	path := filepath.Join(t.TempDir(), "logs", "djmix.log")

	log, err := New(Config{Level: "warn", OutputPath: path, MaxSize: 1}, &console)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	log.Info("hidden")
	log.Warn("deck load failed", zap.String("deck", "A"))

	_ = log.Sync()

	lines := strings.Split(strings.TrimSpace(console.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("console lines got=%d, want=1: %q", len(lines), console.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("console line is not JSON: %v", err)
	}

	if entry["msg"] != "deck load failed" || entry["level"] != "warn" || entry["deck"] != "A" {
		t.Fatalf("console entry got=%v", entry)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	if !strings.Contains(string(data), `"deck load failed"`) {
		t.Fatalf("log file got=%q, want the warning", data)
	}
}

func TestLDefaultsToNop(t *testing.T) {
	if L() == nil {
		t.Fatal("L() got=nil, want a logger")
	}
}
