// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package hub implements the narrow outbound interface to the hub API:
// space metadata lookups with conditional revalidation, token validation
// and user settings retrieval.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/networking"
	"github.com/stacklok/hubgate/pkg/spaces"
)

// maxErrorBodyBytes caps how much of an upstream error body is echoed into
// error messages, so secrets in upstream responses never leak into logs.
const maxErrorBodyBytes = 500

// metadataRetries is the total number of attempts for an idempotent
// metadata GET, including the first.
const metadataRetries = 2

// ErrUnexpectedNotModified reports a 304 answer to an unconditional request.
var ErrUnexpectedNotModified = errors.New("hub returned 304 to a request without If-None-Match")

// Client is the hub API client. All methods honor the caller's context and
// apply explicit per-call timeouts.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a hub client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: networking.NewHTTPClientBuilder().Build(),
	}
}

// SpaceInfoResult is the outcome of one space metadata fetch.
type SpaceInfoResult struct {
	// NotModified is true when the hub answered 304 to a conditional
	// request; Metadata is nil in that case.
	NotModified bool

	// Metadata is the parsed space metadata for a 200 response.
	Metadata *spaces.Metadata
}

// spaceInfoBody is the subset of the hub's space payload the gateway needs.
type spaceInfoBody struct {
	Subdomain string          `json:"subdomain"`
	Emoji     string          `json:"emoji"`
	Private   bool            `json:"private"`
	SDK       string          `json:"sdk"`
	Runtime   *spaces.Runtime `json:"runtime,omitempty"`
}

// SpaceInfo fetches metadata for a space from the hub.
//
// When etag is non-empty, the request is conditional (If-None-Match) and a
// 304 answer yields NotModified=true. The caller's token, when present, is
// forwarded so that metadata for private spaces resolves. Transient
// failures are retried once; 4xx answers are permanent.
func (c *Client) SpaceInfo(
	ctx context.Context, id spaces.ID, token, etag string, timeout time.Duration,
) (*SpaceInfoResult, error) {
	infoURL := fmt.Sprintf("%s/api/spaces/%s/%s", c.baseURL, url.PathEscape(id.Owner), url.PathEscape(id.Name))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	operation := func() (*SpaceInfoResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, infoURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if token != "" {
			req.Header.Set(networking.HeaderAuthorization, "Bearer "+token)
		}
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				logger.Debugf("Failed to close response body: %v", err)
			}
		}()

		switch {
		case resp.StatusCode == http.StatusNotModified:
			return &SpaceInfoResult{NotModified: true}, nil
		case resp.StatusCode == http.StatusOK:
			var body spaceInfoBody
			if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
				return nil, backoff.Permanent(fmt.Errorf("decoding space info for %s: %w", id, err))
			}
			return &SpaceInfoResult{
				Metadata: &spaces.Metadata{
					Subdomain: body.Subdomain,
					Emoji:     body.Emoji,
					Private:   body.Private,
					SDK:       body.SDK,
					Runtime:   body.Runtime,
					ETag:      resp.Header.Get("ETag"),
				},
			}, nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return nil, backoff.Permanent(readHTTPError(resp))
		default:
			return nil, readHTTPError(resp)
		}
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(metadataRetries),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching space info for %s: %w", id, err)
	}
	return result, nil
}

// readHTTPError drains a bounded excerpt of the response body into a
// networking.HTTPError. The excerpt cap keeps upstream secrets out of logs.
func readHTTPError(resp *http.Response) error {
	excerpt, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		excerpt = nil
	}
	return &networking.HTTPError{StatusCode: resp.StatusCode, Body: string(excerpt)}
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var httpErr *networking.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
