package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "text")
	}
	if cfg.Run.Duration() != 50*time.Millisecond {
		t.Errorf("Run.Duration() = %v, want 50ms", cfg.Run.Duration())
	}
	if cfg.Trace.DB != "" {
		t.Errorf("Trace.DB = %q, want empty", cfg.Trace.DB)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default().Validate() = %v, want no errors", errs)
	}
}

func TestLoad_Defaults(t *testing.T) {
	v, err := New("")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("Load() = %+v, want %+v", *cfg, *Default())
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cycle.yaml")
	content := `
log:
  level: debug
run:
  duration_ms: 200
trace:
  db: runs.db
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	v, err := New(path)
	if err != nil {
		t.Fatalf("New(%q) failed: %v", path, err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want default text", cfg.Log.Format)
	}
	if cfg.Run.DurationMS != 200 {
		t.Errorf("Run.DurationMS = %d, want 200", cfg.Run.DurationMS)
	}
	if cfg.Trace.DB != "runs.db" {
		t.Errorf("Trace.DB = %q, want runs.db", cfg.Trace.DB)
	}
}

func TestNew_MissingConfigFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("New() with a missing explicit config file should fail")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CYCLE_LOG_FORMAT", "json")
	t.Setenv("CYCLE_RUN_SETTLE_MS", "25")

	v, err := New("")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
	if cfg.Run.Settle() != 25*time.Millisecond {
		t.Errorf("Run.Settle() = %v, want 25ms", cfg.Run.Settle())
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("CYCLE_LOG_LEVEL", "loud")
	t.Setenv("CYCLE_RUN_DURATION_MS", "-5")

	v, err := New("")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	_, err = Load(v)
	if err == nil {
		t.Fatal("Load() should reject invalid values")
	}

	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("Load() error type = %T, want ValidationErrors", err)
	}
	if len(errs) != 2 {
		t.Fatalf("got %d validation errors, want 2: %v", len(errs), errs)
	}
	if !strings.HasPrefix(err.Error(), "2 validation errors:") {
		t.Errorf("Error() = %q", err.Error())
	}
	if errs[0].Field != "log.level" || errs[1].Field != "run.duration_ms" {
		t.Errorf("fields = %s, %s", errs[0].Field, errs[1].Field)
	}
}

func TestValidationError_Single(t *testing.T) {
	errs := ValidationErrors{{Field: "log.format", Value: "xml", Message: "must be one of text, json"}}
	want := "log.format: must be one of text, json (got: xml)"
	if errs.Error() != want {
		t.Errorf("Error() = %q, want %q", errs.Error(), want)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := (LogConfig{Level: tt.level}).SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
