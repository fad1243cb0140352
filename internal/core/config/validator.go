package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateEngine(cfg *Config) error {
	if cfg.Engine.MaxDepth < 8 {
		return fmt.Errorf("engine.max_depth must be >= 8, got %d", cfg.Engine.MaxDepth)
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if !cfg.History.Enabled {
		return nil
	}
	if cfg.History.Path == "" {
		return fmt.Errorf("history.path must not be empty when history is enabled")
	}
	if cfg.History.Retain < 0 {
		return fmt.Errorf("history.retain must be >= 0, got %d", cfg.History.Retain)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	for i, pattern := range cfg.Watch.Include {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("watch.include[%d] %q: %w", i, pattern, err)
		}
	}
	for i, pattern := range cfg.Watch.Exclude {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("watch.exclude[%d] %q: %w", i, pattern, err)
		}
	}
	return nil
}

func validateServer(cfg *Config) error {
	if !cfg.Server.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Server.Address); err != nil {
		return fmt.Errorf("server.address %q: %w", cfg.Server.Address, err)
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.TracingEnabled && cfg.Observability.OTLPEndpoint == "" {
		return fmt.Errorf("observability.otlp_endpoint is required when tracing is enabled")
	}
	if strings.Contains(cfg.Observability.OTLPEndpoint, "://") {
		return fmt.Errorf("observability.otlp_endpoint must be host:port, got %q", cfg.Observability.OTLPEndpoint)
	}
	return nil
}

// Validate collects every configuration problem instead of stopping at the
// first one.
func Validate(cfg *Config) []error {
	var errs []error

	if err := validateVersion(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateEngine(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateHistory(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateWatch(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateServer(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateObservability(cfg); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, validatePaths(cfg)...)

	return errs
}

func validatePaths(cfg *Config) []error {
	var errs []error
	for i, path := range cfg.Watch.Paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("watch.paths[%d] %q does not exist", i, path))
		}
	}
	if cfg.History.Enabled {
		if info, err := os.Stat(cfg.History.Path); err == nil && info.IsDir() {
			errs = append(errs, fmt.Errorf("history.path %q is a directory", cfg.History.Path))
		}
		if dir := filepath.Dir(cfg.History.Path); dir != "." {
			if info, err := os.Stat(dir); err == nil && !info.IsDir() {
				errs = append(errs, fmt.Errorf("history.path parent %q is not a directory", dir))
			}
		}
	}
	return errs
}
