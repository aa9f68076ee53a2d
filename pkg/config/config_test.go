// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	t.Parallel()

	s := FromViper(viper.New())

	assert.Equal(t, "https://huggingface.co", s.HubURL)
	assert.Empty(t, s.SettingsURL, "no settings service unless one is configured")
	assert.Equal(t, 5*time.Minute, s.SpaceMetadataTTL)
	assert.Equal(t, 5*time.Minute, s.SchemaTTL)
	assert.Equal(t, 10, s.DiscoveryConcurrency)
	assert.Equal(t, 5*time.Second, s.SpaceInfoTimeout)
	assert.Equal(t, 7500*time.Millisecond, s.SchemaTimeout)
	assert.Equal(t, 30*time.Second, s.HeartbeatInterval)
	assert.Equal(t, 90*time.Second, s.StaleCheckInterval)
	assert.Equal(t, 5*time.Minute, s.StaleTimeout)
	assert.Equal(t, 10*time.Minute, s.SSEStaleTimeout)
	assert.True(t, s.PingEnabled)
	assert.Equal(t, 30*time.Second, s.PingInterval)
	assert.Equal(t, 1, s.PingFailureThreshold)
	assert.False(t, s.StrictCompliance)
	assert.False(t, s.SearchEnablesFetch)
	assert.False(t, s.AnalyticsMode)
}

func TestFromViperOverrides(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set(KeyHubURL, "https://hub.example/")
	v.Set(KeySettingsURL, "https://hub.example/api/settings/")
	v.Set(KeySpaceMetadataTTLMs, 1000)
	v.Set(KeyPingEnabled, false)
	v.Set(KeyStrictCompliance, true)
	v.Set(KeyDiscoveryConcurrency, 3)

	s := FromViper(v)

	assert.Equal(t, "https://hub.example", s.HubURL, "trailing slash is trimmed")
	assert.Equal(t, "https://hub.example/api/settings", s.SettingsURL)
	assert.Equal(t, time.Second, s.SpaceMetadataTTL)
	assert.False(t, s.PingEnabled)
	assert.True(t, s.StrictCompliance)
	assert.Equal(t, 3, s.DiscoveryConcurrency)
}
