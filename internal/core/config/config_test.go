package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"calcscript/internal/engine/parser"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calcscript.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
version = 1

[engine]
max_depth = 64

[history]
enabled = true
path = "runs.db"
retain = 100

[watch]
debounce = "1s"
include = ["*.calc"]

[server]
enabled = true
address = "127.0.0.1:9000"
rate_limit = 5.5
burst = 3

[observability]
metrics_enabled = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.MaxDepth != 64 {
		t.Errorf("expected max_depth 64, got %d", cfg.Engine.MaxDepth)
	}
	if !cfg.History.Enabled || cfg.History.Path != "runs.db" || cfg.History.Retain != 100 {
		t.Errorf("unexpected history config %+v", cfg.History)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("expected 1s debounce, got %v", cfg.Watch.Debounce)
	}
	if len(cfg.Watch.Include) != 1 || cfg.Watch.Include[0] != "*.calc" {
		t.Errorf("unexpected include patterns %v", cfg.Watch.Include)
	}
	if cfg.Server.Address != "127.0.0.1:9000" || cfg.Server.RateLimit != 5.5 || cfg.Server.Burst != 3 {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if !cfg.Observability.MetricsEnabled || cfg.Observability.ServiceName != "calcscript" {
		t.Errorf("unexpected observability config %+v", cfg.Observability)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Version != 1 {
		t.Errorf("expected version 1, got %d", cfg.Version)
	}
	if cfg.Engine.MaxDepth != parser.DefaultMaxDepth {
		t.Errorf("expected default depth %d, got %d", parser.DefaultMaxDepth, cfg.Engine.MaxDepth)
	}
	if cfg.Watch.Debounce != 300*time.Millisecond {
		t.Errorf("expected default debounce 300ms, got %v", cfg.Watch.Debounce)
	}
	if cfg.History.Enabled {
		t.Error("history should be disabled by default")
	}
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("default config should validate, got %v", errs)
	}
}

func TestLoadError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeConfig(t, "[engine\nmax_depth = 1")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed TOML")
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "[engine]\nmax_dept = 10\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "engine.max_dept") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"version", "version = 3\n", "unsupported config version 3"},
		{"depth", "[engine]\nmax_depth = 2\n", "engine.max_depth must be >= 8"},
		{"glob", "[watch]\ninclude = [\"[\"]\n", "watch.include[0]"},
		{"address", "[server]\nenabled = true\naddress = \"nope\"\n", "server.address"},
		{"tracing", "[observability]\ntracing_enabled = true\n", "otlp_endpoint is required"},
		{"endpoint scheme", "[observability]\notlp_endpoint = \"http://collector:4317\"\n", "must be host:port"},
		{"watch path", "[watch]\npaths = [\"/does/not/exist\"]\n", "watch.paths[0]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CALCSCRIPT_ENGINE_MAX_DEPTH", "99")
	t.Setenv("CALCSCRIPT_SERVER_ADDRESS", "0.0.0.0:1234")
	t.Setenv("CALCSCRIPT_WATCH_DEBOUNCE", "2s")
	t.Setenv("CALCSCRIPT_HISTORY_ENABLED", "TRUE")
	t.Setenv("CALCSCRIPT_SERVER_BURST", "not-a-number")

	cfg := &Config{}
	ApplyEnvOverrides(cfg)
	if cfg.Engine.MaxDepth != 99 {
		t.Errorf("expected depth override, got %d", cfg.Engine.MaxDepth)
	}
	if cfg.Server.Address != "0.0.0.0:1234" {
		t.Errorf("expected address override, got %q", cfg.Server.Address)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("expected debounce override, got %v", cfg.Watch.Debounce)
	}
	if !cfg.History.Enabled {
		t.Error("expected history override")
	}
	if cfg.Server.Burst != 0 {
		t.Errorf("invalid int override must be ignored, got %d", cfg.Server.Burst)
	}
}
