// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/networking"
)

// Search kinds accepted by the hub's list endpoints.
const (
	KindModels   = "models"
	KindDatasets = "datasets"
	KindSpaces   = "spaces"
	KindPapers   = "papers"
)

// API is the narrow surface the built-in tools call into. The business
// logic of individual tools (result formatting, paper summaries, job
// orchestration) lives behind it, not in the gateway.
type API interface {
	// Search runs a text search over a hub collection and returns the raw
	// JSON body.
	Search(ctx context.Context, kind, query string, limit int, token string) (string, error)

	// Detail returns one repository's metadata; includeReadme additionally
	// inlines the README body.
	Detail(ctx context.Context, kind, repoID, token string, includeReadme bool) (string, error)

	// DocSearch searches the hub documentation.
	DocSearch(ctx context.Context, query string) (string, error)

	// DocFetch retrieves one documentation page as markdown.
	DocFetch(ctx context.Context, docURL string) (string, error)

	// Whoami describes the caller's identity.
	Whoami(ctx context.Context, token string) (string, error)

	// RunJob submits a compute job and waits up to timeout for its output.
	// A zero timeout waits until the job completes.
	RunJob(ctx context.Context, args map[string]any, token string, timeout time.Duration) (string, error)
}

// apiTimeout bounds non-job API calls.
const apiTimeout = 20 * time.Second

// maxAPIBodyBytes caps a tool-facing response body.
const maxAPIBodyBytes = 2 << 20

// NewAPI creates the hub-backed implementation of API.
func NewAPI(baseURL string) API {
	return &apiClient{
		baseURL:    baseURL,
		httpClient: networking.NewHTTPClientBuilder().WithTimeout(apiTimeout).Build(),
	}
}

type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func (a *apiClient) get(ctx context.Context, rawURL, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	if token != "" {
		req.Header.Set(networking.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Debugf("Failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", readHTTPError(resp)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIBodyBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (a *apiClient) Search(ctx context.Context, kind, query string, limit int, token string) (string, error) {
	if limit <= 0 {
		limit = 10
	}
	u := fmt.Sprintf("%s/api/%s?search=%s&limit=%s",
		a.baseURL, kind, url.QueryEscape(query), strconv.Itoa(limit))
	return a.get(ctx, u, token)
}

func (a *apiClient) Detail(ctx context.Context, kind, repoID, token string, includeReadme bool) (string, error) {
	u := fmt.Sprintf("%s/api/%s/%s", a.baseURL, kind, repoID)
	body, err := a.get(ctx, u, token)
	if err != nil {
		return "", err
	}
	if !includeReadme {
		return body, nil
	}
	readme, err := a.get(ctx, fmt.Sprintf("%s/%s/raw/main/README.md", a.baseURL, repoID), token)
	if err != nil {
		logger.Debugw("readme fetch failed", "repo", repoID, "error", err)
		return body, nil
	}
	return body + "\n\n---\n\n" + readme, nil
}

func (a *apiClient) DocSearch(ctx context.Context, query string) (string, error) {
	u := fmt.Sprintf("%s/api/docs/search?q=%s", a.baseURL, url.QueryEscape(query))
	return a.get(ctx, u, "")
}

func (a *apiClient) DocFetch(ctx context.Context, docURL string) (string, error) {
	return a.get(ctx, docURL, "")
}

func (a *apiClient) Whoami(ctx context.Context, token string) (string, error) {
	if token == "" {
		return `{"auth":"anonymous"}`, nil
	}
	return a.get(ctx, a.baseURL+"/api/whoami-v2", token)
}

func (a *apiClient) RunJob(ctx context.Context, args map[string]any, token string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	command, _ := args["command"].(string)
	if command == "" {
		return "", fmt.Errorf("job command is required")
	}
	u := fmt.Sprintf("%s/api/jobs?command=%s", a.baseURL, url.QueryEscape(command))
	return a.get(ctx, u, token)
}
