// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package gateway assembles the scoped MCP server answering one logical
// connection: tool selection, built-in registration, and attachment of
// remote space tools.
package gateway

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/stacklok/hubgate/pkg/auth"
	"github.com/stacklok/hubgate/pkg/config"
	"github.com/stacklok/hubgate/pkg/hub"
	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/spaces/discovery"
	"github.com/stacklok/hubgate/pkg/spaces/proxy"
	"github.com/stacklok/hubgate/pkg/tools"
	"github.com/stacklok/hubgate/pkg/toolsets"
)

// serverName is the outward server identity reported during initialize.
const serverName = "hubgate"

const instructionsAuthenticated = "This server exposes hub search, " +
	"documentation and job tools plus tools proxied from hosted Spaces. " +
	"You are authenticated; private resources you can access are available."

const instructionsAnonymous = "This server exposes hub search, " +
	"documentation and job tools plus tools proxied from hosted Spaces. " +
	"You are not authenticated; pass a bearer token to reach private resources."

// Factory builds one scoped MCP server per logical connection or request.
// Construction is cheap: built-in descriptors are precomputed and space
// discovery is cache-backed.
type Factory struct {
	settings   *config.Settings
	registry   *tools.Registry
	discoverer *discovery.Discoverer
	invoker    *proxy.Invoker
	provider   hub.SettingsProvider
	version    string
}

// NewFactory wires a Factory from its collaborators.
func NewFactory(
	settings *config.Settings,
	registry *tools.Registry,
	discoverer *discovery.Discoverer,
	invoker *proxy.Invoker,
	provider hub.SettingsProvider,
	version string,
) *Factory {
	return &Factory{
		settings:   settings,
		registry:   registry,
		discoverer: discoverer,
		invoker:    invoker,
		provider:   provider,
		version:    version,
	}
}

// Built is the outcome of one factory invocation.
type Built struct {
	Server    *server.MCPServer
	Selection toolsets.Result

	// SpaceToolCount is how many space tools were registered.
	SpaceToolCount int
}

// Build assembles a scoped server for the request. The caller's identity,
// when present, is read from ctx (the auth middleware put it there).
func (f *Factory) Build(ctx context.Context, req *Request) (*Built, error) {
	identity, authenticated := auth.IdentityFromContext(ctx)

	var token string
	var settings *hub.UserSettings
	source := toolsets.SettingsNone
	if authenticated && identity != nil {
		token = identity.Token
		var err error
		settings, err = f.provider.UserSettings(ctx, token)
		if err != nil {
			logger.Warnw("settings lookup failed, using fallback", "error", err)
		} else if settings != nil {
			source = toolsets.SettingsExternal
		}
	}

	selection := toolsets.Select(toolsets.Inputs{
		Bouquet:            req.Bouquet,
		Mix:                req.Mix,
		GradioHeader:       req.Gradio,
		Settings:           settings,
		SettingsSource:     source,
		SearchEnablesFetch: f.settings.SearchEnablesFetch,
	})

	instructions := instructionsAnonymous
	if authenticated {
		instructions = instructionsAuthenticated
	}

	s := server.NewMCPServer(
		serverName,
		f.version,
		server.WithToolCapabilities(true),
		server.WithInstructions(instructions),
		server.WithLogging(),
		server.WithRecovery(),
	)

	f.registry.Register(s, selection.EnabledToolIDs)

	built := &Built{Server: s, Selection: selection}
	if !req.SkipGradio && !selection.GradioDisabled && len(selection.GradioSpaces) > 0 {
		built.SpaceToolCount = f.attachSpaceTools(ctx, s, req, token, selection)
	}
	return built, nil
}
