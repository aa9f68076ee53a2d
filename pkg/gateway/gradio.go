// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/spaces"
	"github.com/stacklok/hubgate/pkg/spaces/discovery"
	"github.com/stacklok/hubgate/pkg/spaces/proxy"
	"github.com/stacklok/hubgate/pkg/toolsets"
)

// attachSpaceTools discovers the selected spaces and registers each of
// their tools under a synthesized outward name. Returns how many tools
// were registered. Discovery failures never fail the build: a caller with
// one broken space still gets everything else.
func (f *Factory) attachSpaceTools(
	ctx context.Context,
	s *server.MCPServer,
	req *Request,
	token string,
	selection toolsets.Result,
) int {
	ids := dedupIDs(selection.GradioSpaces)
	found := f.discoverer.Discover(ctx, ids, token, discovery.Options{})

	namer := proxy.NewNamer()
	count := 0
	for i := range found {
		space := found[i]
		spaceIndex := i + 1
		for j, tool := range space.Tools {
			outward := namer.Name(space.Private, spaceIndex, j+1, tool.Name)
			description := tool.Description
			if description == "" {
				description = fmt.Sprintf("Tool %s from space %s", tool.Name, space.ID)
			}
			if space.Emoji != "" {
				description = space.Emoji + " " + description
			}

			s.AddTool(mcp.Tool{
				Name:        outward,
				Description: description,
				InputSchema: proxy.ProjectInputSchema(tool.InputSchema),
			}, f.spaceToolHandler(space, tool.Name, outward, req))
			count++
		}
	}
	logger.Debugw("space tools attached", "spaces", len(found), "tools", count)
	return count
}

// spaceToolHandler mediates one outward tool to its upstream space tool:
// fresh upstream session per call, progress relayed under the caller's
// token, post-processing applied to the result.
func (f *Factory) spaceToolHandler(
	space spaces.Space, upstreamName, outwardName string, req *Request,
) server.ToolHandlerFunc {
	noImage := req.NoImageContent
	clientName := req.ClientName

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]any)

		var progressToken any
		if request.Params.Meta != nil {
			progressToken = request.Params.Meta.ProgressToken
		}

		var onProgress func(params map[string]any)
		if progressToken != nil {
			if srv := server.ServerFromContext(ctx); srv != nil {
				onProgress = func(params map[string]any) {
					if err := srv.SendNotificationToClient(ctx, "notifications/progress", params); err != nil {
						logger.Debugw("progress relay failed", "tool", outwardName, "error", err)
					}
				}
			}
		}

		result, err := f.invoker.Call(ctx, &proxy.CallRequest{
			Space:         &space,
			ToolName:      upstreamName,
			Arguments:     args,
			Token:         callerToken(ctx),
			ProgressToken: progressToken,
			OnProgress:    onProgress,
		})
		if err != nil {
			// Cancellation propagates as an error so the SDK drops the
			// response; everything else becomes a tool-level error the
			// client can render.
			if errors.Is(err, proxy.ErrCancelled) {
				return nil, err
			}
			logger.Warnw("space tool call failed", "tool", outwardName, "space", space.ID.String(), "error", err)
			return mcp.NewToolResultError(toolErrorMessage(err)), nil
		}

		proxy.FilterImages(result, noImage)
		proxy.EmbedAudioResource(ctx, result, outwardName)
		proxy.ExtractURL(result, clientName, space.ID.String())
		return result, nil
	}
}

// toolErrorMessage keeps upstream failure text bounded and readable.
func toolErrorMessage(err error) string {
	const maxLen = 500
	msg := err.Error()
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

func dedupIDs(ids []spaces.ID) []spaces.ID {
	seen := make(map[string]bool, len(ids))
	out := make([]spaces.ID, 0, len(ids))
	for _, id := range ids {
		key := id.String()
		if !seen[key] {
			seen[key] = true
			out = append(out, id)
		}
	}
	return out
}
