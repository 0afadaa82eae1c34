package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewRenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := New(slog.LevelInfo, FormatText, &buf)
	logger.Info("failed", "error", errors.New("boom"))

	if !strings.Contains(buf.String(), "err=boom") {
		t.Errorf("output = %q, want err=boom", buf.String())
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(slog.LevelDebug, FormatJSON, &buf)
	logger.Debug("tick", "error", "x")

	out := buf.String()
	if !strings.Contains(out, `"msg":"tick"`) || !strings.Contains(out, `"err":"x"`) {
		t.Errorf("output = %q", out)
	}
}

func TestNewHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(slog.LevelWarn, FormatText, &buf)
	logger.Info("hidden")

	if buf.Len() != 0 {
		t.Errorf("info written at warn level: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewNop(t *testing.T) {
	NewNop().Error("discarded")
}
