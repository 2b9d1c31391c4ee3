package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks a loaded configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir required")
	}
	if _, _, err := net.SplitHostPort(cfg.RPCAddress); err != nil {
		return fmt.Errorf("config: RPCAddress %q: %w", cfg.RPCAddress, err)
	}
	registry, err := cfg.Registry()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if registry == ([20]byte{}) {
		return fmt.Errorf("config: RegistryAddress must not be zero")
	}
	if cfg.RateLimit.RequestsPerSecond < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("config: rate_limit values must not be negative")
	}
	if cfg.Telemetry.Enabled && !cfg.Telemetry.Metrics && !cfg.Telemetry.Traces {
		return fmt.Errorf("config: telemetry enabled without metrics or traces")
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("config: telemetry SampleRatio must be within [0, 1]")
	}
	return nil
}
