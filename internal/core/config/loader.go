package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"calcscript/internal/engine/parser"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}

	ApplyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	normalize(&cfg)

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errs[0]
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if cfg.Engine.MaxDepth <= 0 {
		cfg.Engine.MaxDepth = parser.DefaultMaxDepth
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = "data/history.db"
	}
	if cfg.History.BusyTimeout <= 0 {
		cfg.History.BusyTimeout = 2 * time.Second
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if len(cfg.Watch.Include) == 0 {
		cfg.Watch.Include = []string{"*.calc", "*.txt"}
	}
	if len(cfg.Watch.Exclude) == 0 {
		cfg.Watch.Exclude = []string{".*", "*~"}
	}

	if strings.TrimSpace(cfg.Server.Address) == "" {
		cfg.Server.Address = "127.0.0.1:8787"
	}
	if cfg.Server.RateLimit <= 0 {
		cfg.Server.RateLimit = 20
	}
	if cfg.Server.Burst <= 0 {
		cfg.Server.Burst = 40
	}
	if cfg.Server.LimiterTTL <= 0 {
		cfg.Server.LimiterTTL = 5 * time.Minute
	}
	if cfg.Server.MaxBodySize <= 0 {
		cfg.Server.MaxBodySize = 64 << 10
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "calcscript"
	}
}

func normalize(cfg *Config) {
	cfg.History.Path = strings.TrimSpace(cfg.History.Path)
	cfg.Server.Address = strings.TrimSpace(cfg.Server.Address)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)
	cfg.Watch.Paths = trimAll(cfg.Watch.Paths)
	cfg.Watch.Include = trimAll(cfg.Watch.Include)
	cfg.Watch.Exclude = trimAll(cfg.Watch.Exclude)
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
