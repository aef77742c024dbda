package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"picture/internal/config"
	"picture/internal/logging"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello")

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if !strings.Contains(content, `"msg":"hello"`) {
		t.Fatalf("expected json line in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	if content := readLog(t, path); strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	if content := readLog(t, path); !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerPrefixesComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")
	base, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(base, "derive").Info("generated derived image", logging.Int("width", 400), logging.String("path", "a b.jpg"))

	content := readLog(t, path)
	for _, want := range []string{"INFO [derive] – generated derived image", "width=400", `path="a b.jpg"`} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in %q", want, content)
		}
	}
	if strings.Contains(content, "component=") {
		t.Fatalf("component should be rendered in the header only, got %q", content)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Warn("json message", logging.String("k", "v"))

	var line map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, path))), &line); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if line["msg"] != "json message" || line["level"] != "warn" || line["k"] != "v" {
		t.Fatalf("unexpected json log line: %v", line)
	}
	if _, ok := line["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevel(t *testing.T) {
	if _, err := logging.ParseLevel("warning"); err != nil {
		t.Fatalf("warning should be accepted: %v", err)
	}
	if _, err := logging.ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "upscale prevented", "upscale_prevented", logging.String(logging.FieldImpact, "image smaller than requested"))

	var line map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, path))), &line); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if line[logging.FieldEventType] != "upscale_prevented" {
		t.Fatalf("missing event type: %v", line)
	}
	if line[logging.FieldErrorHint] == nil {
		t.Fatalf("missing default error hint: %v", line)
	}
	if line[logging.FieldImpact] != "image smaller than requested" {
		t.Fatalf("impact should not be overridden: %v", line)
	}
}

func TestWithContextAddsRenderID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithRenderID(context.Background(), "r-123")
	logging.WithContext(ctx, logger).Info("rendered")

	if content := readLog(t, path); !strings.Contains(content, `"render_id":"r-123"`) {
		t.Fatalf("expected render id in %q", content)
	}
	if _, ok := logging.RenderIDFromContext(context.Background()); ok {
		t.Fatal("expected no render id on empty context")
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should never be enabled")
	}
	logging.NewComponentLogger(nil, "x").Info("dropped")
}
