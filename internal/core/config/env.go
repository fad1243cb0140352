package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: CALCSCRIPT_[SECTION]_[KEY] (e.g., CALCSCRIPT_SERVER_ADDRESS).
func ApplyEnvOverrides(cfg *Config) {
	// Engine
	setEnvInt(&cfg.Engine.MaxDepth, "CALCSCRIPT_ENGINE_MAX_DEPTH")

	// History
	setEnvBool(&cfg.History.Enabled, "CALCSCRIPT_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "CALCSCRIPT_HISTORY_PATH")
	setEnvInt(&cfg.History.Retain, "CALCSCRIPT_HISTORY_RETAIN")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "CALCSCRIPT_WATCH_DEBOUNCE")

	// Server
	setEnvBool(&cfg.Server.Enabled, "CALCSCRIPT_SERVER_ENABLED")
	setEnvString(&cfg.Server.Address, "CALCSCRIPT_SERVER_ADDRESS")
	setEnvFloat64(&cfg.Server.RateLimit, "CALCSCRIPT_SERVER_RATE_LIMIT")
	setEnvInt(&cfg.Server.Burst, "CALCSCRIPT_SERVER_BURST")

	// Observability
	setEnvBool(&cfg.Observability.MetricsEnabled, "CALCSCRIPT_OBSERVABILITY_METRICS_ENABLED")
	setEnvBool(&cfg.Observability.TracingEnabled, "CALCSCRIPT_OBSERVABILITY_TRACING_ENABLED")
	setEnvString(&cfg.Observability.OTLPEndpoint, "CALCSCRIPT_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.ServiceName, "CALCSCRIPT_OBSERVABILITY_SERVICE_NAME")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
