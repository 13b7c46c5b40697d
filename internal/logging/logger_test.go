package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewConsoleWritesPrefixedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lightbox.log")
	logger, err := New(Options{Level: "info", Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("session opened",
		String(FieldComponent, "viewer"),
		String(FieldSessionID, "abc123"),
		Int(FieldViewport, 2),
	)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(data))
	if !strings.Contains(line, " INFO viewer: session opened") {
		t.Fatalf("expected component prefix in %q", line)
	}
	if !strings.Contains(line, "session_id=abc123") || !strings.Contains(line, "viewport=2") {
		t.Fatalf("expected structured attrs in %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be promoted into the prefix, got %q", line)
	}
}

func TestNewConsoleQuotesAwkwardValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lightbox.log")
	logger, err := New(Options{Level: "debug", Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("decode failed", String("detail", "missing pixel data"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `detail="missing pixel data"`) {
		t.Fatalf("expected quoted value in %q", string(data))
	}
}

func TestNewJSONUsesCompactKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lightbox.json")
	logger, err := New(Options{Level: "warn", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Warn("stack unreadable", String(FieldSeriesUID, "1.2.3"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("unmarshal log record: %v", err)
	}
	if record["level"] != "warn" {
		t.Fatalf("expected lowercase level, got %v", record["level"])
	}
	if record["msg"] != "stack unreadable" {
		t.Fatalf("unexpected message %v", record["msg"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatal("expected ts key in JSON record")
	}
	if record["series_uid"] != "1.2.3" {
		t.Fatalf("expected series_uid attr, got %v", record["series_uid"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bizarre": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestWithContextAddsSessionFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := New(Options{Level: "info", Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := WithSessionID(context.Background(), "sess-9")
	ctx = WithRequestID(ctx, "req-1")
	WithContext(ctx, logger).Info("navigated")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "session_id=sess-9") || !strings.Contains(line, "correlation_id=req-1") {
		t.Fatalf("expected context fields in %q", line)
	}
}

func TestWithContextNilLoggerUsesNop(t *testing.T) {
	logger := WithContext(context.Background(), nil)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	logger.Info("should not panic")
}
