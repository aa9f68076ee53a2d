// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config holds the environment-driven configuration surface for hubgate.
//
// All discovery and transport timings are configured through environment
// variables (via viper) with documented defaults. Components copy the values
// they need at entry, so changing configuration at runtime never requires
// locking inside the hot paths.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment variable keys. Durations are expressed in milliseconds to
// match the upstream deployment convention.
const (
	KeyHubURL               = "hub_url"
	KeySettingsURL          = "settings_url"
	KeySpaceMetadataTTLMs   = "space_metadata_ttl_ms"
	KeySchemaTTLMs          = "schema_ttl_ms"
	KeyDiscoveryConcurrency = "discovery_concurrency"
	KeySpaceInfoTimeoutMs   = "space_info_timeout_ms"
	KeySchemaTimeoutMs      = "schema_timeout_ms"
	KeyHeartbeatIntervalMs  = "heartbeat_interval_ms"
	KeyStaleCheckIntervalMs = "stale_check_interval_ms"
	KeyStaleTimeoutMs       = "stale_timeout_ms"
	KeySSEStaleTimeoutMs    = "sse_stale_timeout_ms"
	KeyPingEnabled          = "ping_enabled"
	KeyPingIntervalMs       = "ping_interval_ms"
	KeyPingFailureThreshold = "ping_failure_threshold"
	KeyStrictCompliance     = "strict_compliance"
	KeySearchEnablesFetch   = "search_enables_fetch"
	KeyAnalyticsMode        = "analytics_mode"
)

// Settings is an immutable snapshot of the gateway configuration.
type Settings struct {
	// HubURL is the base URL of the hub API used for space metadata and
	// token validation.
	HubURL string

	// SettingsURL is the endpoint serving per-user tool settings. Empty
	// means no settings service is deployed: the selection strategy then
	// never sees stored settings and uses its fallback mode.
	SettingsURL string

	// SpaceMetadataTTL bounds the lifetime of cached space metadata,
	// measured from entry creation.
	SpaceMetadataTTL time.Duration

	// SchemaTTL bounds the lifetime of cached space tool schemas.
	SchemaTTL time.Duration

	// DiscoveryConcurrency is the metadata-phase batch size.
	DiscoveryConcurrency int

	// SpaceInfoTimeout bounds a single space metadata fetch.
	SpaceInfoTimeout time.Duration

	// SchemaTimeout bounds a single schema fetch.
	SchemaTimeout time.Duration

	// HeartbeatInterval is the per-session dead-stream detection interval.
	HeartbeatInterval time.Duration

	// StaleCheckInterval is how often the stale-session sweep runs.
	StaleCheckInterval time.Duration

	// StaleTimeout evicts streamable-HTTP sessions idle for longer than this.
	StaleTimeout time.Duration

	// SSEStaleTimeout evicts SSE sessions idle for longer than this.
	SSEStaleTimeout time.Duration

	// PingEnabled toggles the protocol-level keep-alive pinger.
	PingEnabled bool

	// PingInterval is how often each session is pinged.
	PingInterval time.Duration

	// PingFailureThreshold is the consecutive-failure count at which a
	// session is flagged as distressed.
	PingFailureThreshold int

	// StrictCompliance rejects the GET /mcp welcome page with 405.
	StrictCompliance bool

	// SearchEnablesFetch automatically enables hf_doc_fetch whenever
	// hf_doc_search is part of the selected tool set.
	SearchEnablesFetch bool

	// AnalyticsMode keeps an observability-only session table on the
	// stateless transport.
	AnalyticsMode bool
}

// setDefaults registers the documented default for every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyHubURL, "https://huggingface.co")
	v.SetDefault(KeySettingsURL, "")
	v.SetDefault(KeySpaceMetadataTTLMs, 300_000)
	v.SetDefault(KeySchemaTTLMs, 300_000)
	v.SetDefault(KeyDiscoveryConcurrency, 10)
	v.SetDefault(KeySpaceInfoTimeoutMs, 5_000)
	v.SetDefault(KeySchemaTimeoutMs, 7_500)
	v.SetDefault(KeyHeartbeatIntervalMs, 30_000)
	v.SetDefault(KeyStaleCheckIntervalMs, 90_000)
	v.SetDefault(KeyStaleTimeoutMs, 300_000)
	v.SetDefault(KeySSEStaleTimeoutMs, 600_000)
	v.SetDefault(KeyPingEnabled, true)
	v.SetDefault(KeyPingIntervalMs, 30_000)
	v.SetDefault(KeyPingFailureThreshold, 1)
	v.SetDefault(KeyStrictCompliance, false)
	v.SetDefault(KeySearchEnablesFetch, false)
	v.SetDefault(KeyAnalyticsMode, false)
}

// Load reads the configuration from the environment.
func Load() *Settings {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

// FromViper builds a Settings snapshot from an existing viper instance.
// Primarily used by tests to inject configuration without touching the
// process environment.
func FromViper(v *viper.Viper) *Settings {
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) *Settings {
	ms := func(key string) time.Duration {
		return time.Duration(v.GetInt64(key)) * time.Millisecond
	}
	return &Settings{
		HubURL:               strings.TrimRight(v.GetString(KeyHubURL), "/"),
		SettingsURL:          strings.TrimRight(v.GetString(KeySettingsURL), "/"),
		SpaceMetadataTTL:     ms(KeySpaceMetadataTTLMs),
		SchemaTTL:            ms(KeySchemaTTLMs),
		DiscoveryConcurrency: v.GetInt(KeyDiscoveryConcurrency),
		SpaceInfoTimeout:     ms(KeySpaceInfoTimeoutMs),
		SchemaTimeout:        ms(KeySchemaTimeoutMs),
		HeartbeatInterval:    ms(KeyHeartbeatIntervalMs),
		StaleCheckInterval:   ms(KeyStaleCheckIntervalMs),
		StaleTimeout:         ms(KeyStaleTimeoutMs),
		SSEStaleTimeout:      ms(KeySSEStaleTimeoutMs),
		PingEnabled:          v.GetBool(KeyPingEnabled),
		PingInterval:         ms(KeyPingIntervalMs),
		PingFailureThreshold: v.GetInt(KeyPingFailureThreshold),
		StrictCompliance:     v.GetBool(KeyStrictCompliance),
		SearchEnablesFetch:   v.GetBool(KeySearchEnablesFetch),
		AnalyticsMode:        v.GetBool(KeyAnalyticsMode),
	}
}
