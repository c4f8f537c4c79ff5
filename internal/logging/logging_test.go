package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("component", "engine")).Warn(context.Background(), "site stolen",
		Int("agent", 7),
		Float("affinity", 0.25),
		Err(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if rec["msg"] != "site stolen" {
		t.Fatalf("msg = %v, want %q", rec["msg"], "site stolen")
	}
	if rec["component"] != "engine" {
		t.Fatalf("component = %v, want engine", rec["component"])
	}
	if rec["error"] != "boom" {
		t.Fatalf("error = %v, want boom", rec["error"])
	}
	if rec["level"] != "WARN" {
		t.Fatalf("level = %v, want WARN", rec["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("info line emitted at warn level: %q", buf.String())
	}
	if log.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("debug reported enabled at warn level")
	}
	log.Error(context.Background(), "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("error line missing: %q", buf.String())
	}
}

func TestWithRunLoggerKeepsExistingID(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	if id == "" {
		t.Fatalf("EnsureRunID returned empty id")
	}
	ctx2, _ := WithRunLogger(ctx, nil)
	if got := RunIDFromContext(ctx2); got != id {
		t.Fatalf("run id = %q, want %q", got, id)
	}
	if FromContext(ctx2, nil) == nil {
		t.Fatalf("FromContext returned nil logger")
	}
}

func TestFromContextFallsBack(t *testing.T) {
	fallback := Noop()
	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Fatalf("FromContext without logger should return fallback")
	}
}
