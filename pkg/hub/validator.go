// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stacklok/hubgate/pkg/auth"
	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/networking"
)

// validateTimeout bounds a single whoami call.
const validateTimeout = 10 * time.Second

// tokenValidator validates bearer tokens against the hub's whoami endpoint.
type tokenValidator struct {
	baseURL    string
	httpClient *http.Client
}

// NewTokenValidator creates an auth.TokenValidator backed by the hub.
func NewTokenValidator(baseURL string) auth.TokenValidator {
	return &tokenValidator{
		baseURL:    baseURL,
		httpClient: networking.NewHTTPClientBuilder().WithTimeout(validateTimeout).Build(),
	}
}

type whoamiBody struct {
	Name     string `json:"name"`
	Fullname string `json:"fullname"`
}

// Validate implements auth.TokenValidator. Only a definitive 401 from the
// hub maps to auth.ErrUnauthorized; every other failure is an ordinary
// error so the caller can fall back to anonymous handling.
func (v *tokenValidator) Validate(ctx context.Context, token string) (*auth.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/api/whoami-v2", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(networking.HeaderAuthorization, "Bearer "+token)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whoami request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Debugf("Failed to close response body: %v", err)
		}
	}()

	switch resp.StatusCode {
	case http.StatusOK:
		var body whoamiBody
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
			return nil, fmt.Errorf("decoding whoami response: %w", err)
		}
		return &auth.Identity{Username: body.Name, Name: body.Fullname, Token: token}, nil
	case http.StatusUnauthorized:
		return nil, auth.ErrUnauthorized
	default:
		return nil, readHTTPError(resp)
	}
}
