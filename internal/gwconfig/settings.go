// Package gwconfig loads and validates the gateway's settings and route
// rules from YAML, following the teacher's strict-decode, validate-at-load
// convention.
package gwconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/edgecomet/gateway/internal/gwlog"
	"github.com/edgecomet/gateway/internal/yamlutil"
)

// Settings is the gateway's immutable-after-load configuration.
type Settings struct {
	GatewayBind        string       `yaml:"gateway_bind"`
	JWTDecodingKey     string       `yaml:"jwt_decoding_key"`
	UpstreamDefault    string       `yaml:"upstream_default"`
	GlobalQPS          int          `yaml:"global_qps"`
	ClientQPS          int          `yaml:"client_qps"`
	RequestTimeoutSecs *int         `yaml:"request_timeout_secs,omitempty"`
	MaxBodyBytes       int64        `yaml:"max_body_bytes,omitempty"`
	Log                gwlog.Config `yaml:"log"`
	MetricsPath        string       `yaml:"metrics_path,omitempty"`
	ClientIPHeaders    []string     `yaml:"client_ip_headers,omitempty"`
}

const defaultMaxBodyBytes = 16 << 20 // 16 MiB, per the body-size Open Question decision.

// RequestTimeout returns the configured per-request timeout, defaulting
// to 10s when unset, matching Settings::request_timeout in the original.
func (s *Settings) RequestTimeout() time.Duration {
	if s.RequestTimeoutSecs == nil {
		return 10 * time.Second
	}
	return time.Duration(*s.RequestTimeoutSecs) * time.Second
}

// Validate checks required fields and applies defaults that don't need
// a full reload to take effect.
func (s *Settings) Validate() error {
	if s.GatewayBind == "" {
		return fmt.Errorf("gateway_bind must not be empty")
	}
	if s.JWTDecodingKey == "" {
		return fmt.Errorf("jwt_decoding_key must not be empty")
	}
	if s.UpstreamDefault == "" {
		return fmt.Errorf("upstream_default must not be empty")
	}
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = defaultMaxBodyBytes
	}
	if s.MetricsPath == "" {
		s.MetricsPath = "/metrics"
	}
	if !s.Log.Console.Enabled && !s.Log.File.Enabled {
		s.Log.Console.Enabled = true
		s.Log.Console.Format = gwlog.FormatConsole
		if s.Log.Level == "" {
			s.Log.Level = gwlog.LevelInfo
		}
	}
	return nil
}

// LoadSettings reads and validates Settings from a YAML file, applying
// environment-variable overrides for the fields the original gateway
// exposes via its own environment layer.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}

	var s Settings
	if err := yamlutil.UnmarshalStrict(data, &s); err != nil {
		return nil, fmt.Errorf("parsing settings file %s: %w", path, err)
	}

	applyEnvOverrides(&s)

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return &s, nil
}

func applyEnvOverrides(s *Settings) {
	if v := os.Getenv("GATEWAY_BIND"); v != "" {
		s.GatewayBind = v
	}
	if v := os.Getenv("JWT_DECODING_KEY"); v != "" {
		s.JWTDecodingKey = v
	}
	if v := os.Getenv("UPSTREAM_DEFAULT"); v != "" {
		s.UpstreamDefault = v
	}
}
