// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/stacklok/hubgate/pkg/auth"
	"github.com/stacklok/hubgate/pkg/hub"
	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/spaces"
	"github.com/stacklok/hubgate/pkg/spaces/discovery"
	"github.com/stacklok/hubgate/pkg/spaces/proxy"
)

// defaultJobTimeout applies when the caller sent no job-timeout override.
const defaultJobTimeout = 5 * time.Minute

// Registry registers built-in tools onto scoped MCP servers. One registry
// serves the whole process; registration is cheap because descriptors are
// precomputed.
type Registry struct {
	api        hub.API
	discoverer *discovery.Discoverer
	invoker    *proxy.Invoker
}

// NewRegistry creates a Registry over the given collaborators.
func NewRegistry(api hub.API, d *discovery.Discoverer, inv *proxy.Invoker) *Registry {
	return &Registry{api: api, discoverer: d, invoker: inv}
}

// Register adds every built-in tool to the server, then deletes the ones
// outside the enabled set. Registering everything first keeps the handler
// wiring in one place; the delete pass is what scopes the surface.
func (r *Registry) Register(s *server.MCPServer, enabled []string) {
	enabledSet := make(map[string]bool, len(enabled))
	includeReadme := false
	for _, id := range enabled {
		if id == MarkerReadmeInclude {
			includeReadme = true
			continue
		}
		enabledSet[id] = true
	}

	var disabled []string
	for _, d := range Descriptors(includeReadme) {
		s.AddTool(d.Tool, r.handler(d.ID))
		if !enabledSet[d.ID] {
			disabled = append(disabled, d.ID)
		}
	}
	if len(disabled) > 0 {
		s.DeleteTools(disabled...)
	}
}

// callerToken extracts the caller's bearer token from the request context.
func callerToken(ctx context.Context) string {
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil {
		return identity.Token
	}
	return ""
}

func (r *Registry) handler(id string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]any)
		if args == nil {
			args = map[string]any{}
		}

		out, err := r.dispatch(ctx, id, args)
		if err != nil {
			logger.Warnw("built-in tool failed", "tool", id, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

//nolint:gocyclo // one switch over every built-in tool is clearer than a handler table.
func (r *Registry) dispatch(ctx context.Context, id string, args map[string]any) (string, error) {
	token := callerToken(ctx)
	query, _ := args["query"].(string)
	limit := intArg(args, "limit")

	switch id {
	case IDSpaceSearch:
		return r.api.Search(ctx, hub.KindSpaces, query, limit, token)
	case IDModelSearch:
		return r.api.Search(ctx, hub.KindModels, query, limit, token)
	case IDDatasetSearch:
		return r.api.Search(ctx, hub.KindDatasets, query, limit, token)
	case IDPaperSearch:
		return r.api.Search(ctx, hub.KindPapers, query, limit, token)
	case IDModelDetail:
		repoID, _ := args["repo_id"].(string)
		return r.api.Detail(ctx, hub.KindModels, repoID, token, false)
	case IDDatasetDetail:
		repoID, _ := args["repo_id"].(string)
		return r.api.Detail(ctx, hub.KindDatasets, repoID, token, false)
	case IDDocSearch:
		return r.api.DocSearch(ctx, query)
	case IDDocFetch:
		docURL, _ := args["doc_url"].(string)
		return r.api.DocFetch(ctx, docURL)
	case IDWhoami:
		return r.api.Whoami(ctx, token)
	case IDHubInspect:
		repoID, _ := args["repo_id"].(string)
		repoType, _ := args["repo_type"].(string)
		includeReadme, _ := args["include_readme"].(bool)
		kind := hub.KindModels
		switch repoType {
		case "dataset":
			kind = hub.KindDatasets
		case "space":
			kind = hub.KindSpaces
		}
		return r.api.Detail(ctx, kind, repoID, token, includeReadme)
	case IDJobs:
		timeout := defaultJobTimeout
		if override, ok := JobTimeoutFromContext(ctx); ok {
			timeout = override
		}
		return r.api.RunJob(ctx, args, token, timeout)
	case IDUseSpace:
		return r.useSpace(ctx, args, token)
	case IDDynamicSpace:
		return r.dynamicSpace(ctx, args, token)
	default:
		return "", fmt.Errorf("unknown tool %q", id)
	}
}

// useSpace discovers one space and reports its tools so the caller can
// attach them on the next connection via the gradio parameter.
func (r *Registry) useSpace(ctx context.Context, args map[string]any, token string) (string, error) {
	rawID, _ := args["space_id"].(string)
	id, ok := spaces.ParseID(rawID)
	if !ok {
		return "", fmt.Errorf("invalid space id %q, expected owner/name", rawID)
	}

	found := r.discoverer.Discover(ctx, []spaces.ID{id}, token, discovery.Options{})
	if len(found) == 0 {
		return "", fmt.Errorf("space %s has no reachable gradio tools", id)
	}

	s := found[0]
	names := make([]string, len(s.Tools))
	for i, t := range s.Tools {
		names[i] = t.Name
	}
	summary := map[string]any{
		"space":       s.ID.String(),
		"private":     s.Private,
		"tools":       names,
		"instruction": fmt.Sprintf("Reconnect with gradio=%s to expose these tools directly.", s.ID),
	}
	out, err := json.Marshal(summary)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// dynamicSpace discovers a space and invokes one of its tools in a single
// step, without registering anything.
func (r *Registry) dynamicSpace(ctx context.Context, args map[string]any, token string) (string, error) {
	rawID, _ := args["space_id"].(string)
	toolName, _ := args["tool_name"].(string)
	toolArgs, _ := args["arguments"].(map[string]any)

	id, ok := spaces.ParseID(rawID)
	if !ok {
		return "", fmt.Errorf("invalid space id %q, expected owner/name", rawID)
	}

	found := r.discoverer.Discover(ctx, []spaces.ID{id}, token, discovery.Options{})
	if len(found) == 0 {
		return "", fmt.Errorf("space %s has no reachable gradio tools", id)
	}
	s := found[0]

	upstreamName := ""
	for _, t := range s.Tools {
		if t.Name == toolName {
			upstreamName = t.Name
			break
		}
	}
	if upstreamName == "" {
		return "", fmt.Errorf("space %s has no tool named %q", id, toolName)
	}

	result, err := r.invoker.Call(ctx, &proxy.CallRequest{
		Space:     &s,
		ToolName:  upstreamName,
		Arguments: toolArgs,
		Token:     token,
	})
	if err != nil {
		return "", err
	}
	if len(result.Content) > 0 {
		if text, ok := mcp.AsTextContent(result.Content[0]); ok {
			return text.Text, nil
		}
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
