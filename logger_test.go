package velaterm

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerDefaultsSilent(t *testing.T) {
	SetLogger(nil)
	log := Logger()
	if log == nil {
		t.Fatal("Logger() returned nil")
	}
	if log.Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger should be disabled at every level")
	}
}

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	Logger().Info("pipeline ready", "panes", 2)
	if !strings.Contains(buf.String(), "pipeline ready") {
		t.Errorf("log output = %q, want the logged message", buf.String())
	}

	// nil restores the silent default.
	SetLogger(nil)
	buf.Reset()
	Logger().Error("should vanish")
	if buf.Len() != 0 {
		t.Errorf("output after reset = %q, want none", buf.String())
	}
}
