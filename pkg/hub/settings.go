// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/networking"
)

// UserSettings is a caller's stored tool configuration.
type UserSettings struct {
	// BuiltInTools is the ordered list of enabled built-in tool ids.
	BuiltInTools []string `json:"builtInTools"`

	// GradioSpaces is the list of space identifiers (owner/name) the user
	// has attached as remote tools.
	GradioSpaces []string `json:"gradioFunctions"`
}

// SettingsProvider retrieves a caller's stored settings, or nil when the
// caller has none (anonymous, or no settings service configured).
type SettingsProvider interface {
	UserSettings(ctx context.Context, token string) (*UserSettings, error)
}

// settingsTimeout bounds a single settings fetch.
const settingsTimeout = 5 * time.Second

type settingsClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewSettingsProvider creates a SettingsProvider backed by an external
// settings API. An empty endpoint yields a provider that always returns
// nil settings, which pushes the selection strategy to its fallback mode.
func NewSettingsProvider(endpoint string) SettingsProvider {
	return &settingsClient{
		endpoint:   endpoint,
		httpClient: networking.NewHTTPClientBuilder().WithTimeout(settingsTimeout).Build(),
	}
}

// UserSettings fetches the caller's settings. Failures are logged and
// reported as missing settings: a settings outage must degrade to the
// fallback tool set, never to a request error.
func (s *settingsClient) UserSettings(ctx context.Context, token string) (*UserSettings, error) {
	if s.endpoint == "" || token == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(networking.HeaderAuthorization, "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.Warnw("user settings fetch failed", "error", err)
		return nil, nil
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Debugf("Failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		logger.Debugw("user settings unavailable", "status", resp.StatusCode)
		return nil, nil
	}

	var settings UserSettings
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&settings); err != nil {
		logger.Warnw("user settings decode failed", "error", err)
		return nil, nil
	}
	return &settings, nil
}
