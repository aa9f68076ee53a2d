// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/networking"
	"github.com/stacklok/hubgate/pkg/spaces"
)

// lambdaMarker appears in autogenerated Gradio tool names that have no
// stable identity across restarts. Tools carrying it are filtered out.
const lambdaMarker = "<lambda"

// maxSchemaBytes caps how much schema JSON is read from a space.
const maxSchemaBytes = 4 << 20

// fetchSchema downloads and parses a space's tool schema. Private spaces
// receive the caller's token in the dedicated forwarding header.
func (d *Discoverer) fetchSchema(
	ctx context.Context, s *spaces.Space, token string, timeout time.Duration,
) (*spaces.Schema, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.schemaURL(s), nil)
	if err != nil {
		return nil, err
	}
	if s.Private && token != "" {
		req.Header.Set(networking.HeaderHubAuthorization, "Bearer "+token)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Debugf("Failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("schema endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSchemaBytes))
	if err != nil {
		return nil, fmt.Errorf("reading schema body: %w", err)
	}

	tools, err := parseSchema(body)
	if err != nil {
		return nil, err
	}
	return &spaces.Schema{Tools: tools, FetchedAt: time.Now()}, nil
}

// parseSchema normalizes both wire forms of a Gradio tool schema into a
// single descriptor list:
//
//	array form:  [{"name": ..., "description": ..., "inputSchema": {...}}, ...]
//	object form: {"tool_name": {<input schema, description inline>}, ...}
//
// Tools whose names contain the lambda marker are dropped at ingest so no
// downstream consumer ever branches on the wire form.
func parseSchema(body []byte) ([]spaces.ToolDescriptor, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("schema endpoint returned invalid JSON")
	}
	parsed := gjson.ParseBytes(body)

	var tools []spaces.ToolDescriptor
	switch {
	case parsed.IsArray():
		parsed.ForEach(func(_, item gjson.Result) bool {
			name := item.Get("name").String()
			if name == "" || strings.Contains(name, lambdaMarker) {
				return true
			}
			tools = append(tools, spaces.ToolDescriptor{
				Name:        name,
				Description: item.Get("description").String(),
				InputSchema: asSchemaMap(item.Get("inputSchema")),
			})
			return true
		})
	case parsed.IsObject():
		parsed.ForEach(func(key, item gjson.Result) bool {
			name := key.String()
			if name == "" || strings.Contains(name, lambdaMarker) {
				return true
			}
			tools = append(tools, spaces.ToolDescriptor{
				Name:        name,
				Description: item.Get("description").String(),
				InputSchema: asSchemaMap(item),
			})
			return true
		})
	default:
		return nil, fmt.Errorf("schema endpoint returned neither array nor object")
	}
	return tools, nil
}

// asSchemaMap converts a gjson object into a generic map, or nil when the
// value is absent or not an object.
func asSchemaMap(r gjson.Result) map[string]any {
	if !r.IsObject() {
		return nil
	}
	m, ok := r.Value().(map[string]any)
	if !ok {
		return nil
	}
	return m
}
