package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestChannelTagging(t *testing.T) {
	var buf bytes.Buffer
	root, err := New(Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	For(root, ChannelWorker).Info("tick", "processed", 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["channel"] != "worker" || rec["msg"] != "tick" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	root, err := New(Options{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	root.Info("hidden")
	root.Warn("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Error("expected error")
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	l := For(nil, ChannelIndex)
	if l == nil {
		t.Fatal("expected logger")
	}
	l.Error("dropped")
}
