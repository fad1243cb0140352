package config

import "time"

type Config struct {
	Version       int           `toml:"version"`
	Engine        Engine        `toml:"engine"`
	History       History       `toml:"history"`
	Watch         Watch         `toml:"watch"`
	Server        Server        `toml:"server"`
	Observability Observability `toml:"observability"`
}

type Engine struct {
	MaxDepth int `toml:"max_depth"`
}

type History struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	Retain      int           `toml:"retain"`
}

type Watch struct {
	Paths    []string      `toml:"paths"`
	Debounce time.Duration `toml:"debounce"`
	Include  []string      `toml:"include"` // Glob patterns on base names (e.g. *.calc)
	Exclude  []string      `toml:"exclude"`
}

type Server struct {
	Enabled     bool          `toml:"enabled"`
	Address     string        `toml:"address"`
	RateLimit   float64       `toml:"rate_limit"`
	Burst       int           `toml:"burst"`
	LimiterTTL  time.Duration `toml:"limiter_ttl"`
	MaxBodySize int64         `toml:"max_body_size"`
}

type Observability struct {
	MetricsEnabled bool   `toml:"metrics_enabled"`
	TracingEnabled bool   `toml:"tracing_enabled"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
	ServiceName    string `toml:"service_name"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
