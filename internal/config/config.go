// Package config loads the bridge's environment-driven configuration,
// including the six-regex interface allowance policy (spec §6).
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ZettaScaleLabs/zplugin-ros2/internal/routes"
)

// Config holds every externally-configurable bridge option.
type Config struct {
	ID                string
	Namespace         string
	NodeName          string
	Domain            uint32
	ROSLocalhostOnly  bool
	ShmEnabled        bool
	QueriesTimeout    time.Duration
	ReliableRoutesBlocking bool
	Allowance         *routes.Policy

	Telemetry TelemetryConfig
}

// TelemetryConfig configures the OTLP exporter.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible
// defaults, per spec §6.
func Load() (*Config, error) {
	allowance, err := loadAllowance()
	if err != nil {
		return nil, fmt.Errorf("ConfigInvalid: %w", err)
	}

	return &Config{
		ID:                     envStr("ZENOH_BRIDGE_ROS2_ID", ""),
		Namespace:              envStr("ZENOH_BRIDGE_ROS2_NAMESPACE", ""),
		NodeName:               envStr("ZENOH_BRIDGE_ROS2_NODENAME", "zenoh-bridge-ros2"),
		Domain:                 uint32(envInt("ROS_DOMAIN_ID", 0)),
		ROSLocalhostOnly:       envStr("ROS_LOCALHOST_ONLY", "") == "1",
		ShmEnabled:             envBool("ZENOH_BRIDGE_ROS2_SHM_ENABLED", false),
		QueriesTimeout:         envDuration("ZENOH_BRIDGE_ROS2_QUERIES_TIMEOUT_S", 5*time.Second),
		ReliableRoutesBlocking: envBool("ZENOH_BRIDGE_ROS2_RELIABLE_ROUTES_BLOCKING", true),
		Allowance:              allowance,
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "zenoh-bridge-ros2"),
		},
	}, nil
}

// loadAllowance builds the routes.Policy from the six per-interface regex
// environment variables, each a "|"-joined, already-anchored alternative or
// a bare list the loader anchors and joins itself. Absence of both the
// allow and deny variable sets means no policy (everything permitted).
func loadAllowance() (*routes.Policy, error) {
	allow := os.Getenv("ZENOH_BRIDGE_ROS2_ALLOW_PUBLISHERS") != "" ||
		os.Getenv("ZENOH_BRIDGE_ROS2_ALLOW_SUBSCRIBERS") != "" ||
		os.Getenv("ZENOH_BRIDGE_ROS2_ALLOW_SERVICE_SERVERS") != "" ||
		os.Getenv("ZENOH_BRIDGE_ROS2_ALLOW_SERVICE_CLIENTS") != "" ||
		os.Getenv("ZENOH_BRIDGE_ROS2_ALLOW_ACTION_SERVERS") != "" ||
		os.Getenv("ZENOH_BRIDGE_ROS2_ALLOW_ACTION_CLIENTS") != ""
	deny := os.Getenv("ZENOH_BRIDGE_ROS2_DENY_PUBLISHERS") != "" ||
		os.Getenv("ZENOH_BRIDGE_ROS2_DENY_SUBSCRIBERS") != "" ||
		os.Getenv("ZENOH_BRIDGE_ROS2_DENY_SERVICE_SERVERS") != "" ||
		os.Getenv("ZENOH_BRIDGE_ROS2_DENY_SERVICE_CLIENTS") != "" ||
		os.Getenv("ZENOH_BRIDGE_ROS2_DENY_ACTION_SERVERS") != "" ||
		os.Getenv("ZENOH_BRIDGE_ROS2_DENY_ACTION_CLIENTS") != ""
	if allow && deny {
		return nil, fmt.Errorf("allow and deny allowance variants are mutually exclusive")
	}
	if !allow && !deny {
		return nil, nil
	}

	prefix := "ZENOH_BRIDGE_ROS2_DENY_"
	if allow {
		prefix = "ZENOH_BRIDGE_ROS2_ALLOW_"
	}

	p := &routes.Policy{Allow: allow}
	fields := []struct {
		envSuffix string
		dest      **regexp.Regexp
	}{
		{"PUBLISHERS", &p.Publishers},
		{"SUBSCRIBERS", &p.Subscribers},
		{"SERVICE_SERVERS", &p.ServiceServers},
		{"SERVICE_CLIENTS", &p.ServiceClients},
		{"ACTION_SERVERS", &p.ActionServers},
		{"ACTION_CLIENTS", &p.ActionClients},
	}
	for _, f := range fields {
		raw := os.Getenv(prefix + f.envSuffix)
		if raw == "" {
			continue
		}
		re, err := compileAnchoredAlternatives(raw)
		if err != nil {
			return nil, fmt.Errorf("%s%s: %w", prefix, f.envSuffix, err)
		}
		*f.dest = re
	}
	return p, nil
}

// compileAnchoredAlternatives anchors each "|"-separated alternative with
// ^…$ and joins them, matching spec §6's "implicitly anchored and joined"
// rule for a regex supplied as multiple strings.
func compileAnchoredAlternatives(raw string) (*regexp.Regexp, error) {
	parts := strings.Split(raw, "|")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if !strings.HasPrefix(p, "^") {
			p = "^" + p
		}
		if !strings.HasSuffix(p, "$") {
			p = p + "$"
		}
		parts[i] = p
	}
	return regexp.Compile(strings.Join(parts, "|"))
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(f * float64(time.Second))
		}
	}
	return fallback
}
