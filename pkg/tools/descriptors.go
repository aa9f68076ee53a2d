// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Descriptor pairs a tool id with its outward MCP tool definition.
type Descriptor struct {
	ID   string
	Tool mcp.Tool
}

// baseDescriptors is computed once at process start so per-request server
// construction only wires enable flags, never rebuilds schemas.
var baseDescriptors = buildDescriptors()

// Descriptors returns the built-in tool definitions. When includeReadme is
// set, the hub_inspect schema additionally exposes the include_readme flag.
func Descriptors(includeReadme bool) []Descriptor {
	if !includeReadme {
		return baseDescriptors
	}
	out := make([]Descriptor, len(baseDescriptors))
	copy(out, baseDescriptors)
	for i, d := range out {
		if d.ID == IDHubInspect {
			out[i].Tool = hubInspectTool(true)
		}
	}
	return out
}

func searchSchema(subject string) mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query for " + subject,
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results",
				"default":     10,
			},
		},
		Required: []string{"query"},
	}
}

func detailSchema(subject string) mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"repo_id": map[string]any{
				"type":        "string",
				"description": "Repository id of the " + subject + ", as owner/name",
			},
		},
		Required: []string{"repo_id"},
	}
}

func hubInspectTool(includeReadme bool) mcp.Tool {
	properties := map[string]any{
		"repo_id": map[string]any{
			"type":        "string",
			"description": "Repository id as owner/name",
		},
		"repo_type": map[string]any{
			"type": "string",
			"enum": []string{"model", "dataset", "space"},
		},
	}
	if includeReadme {
		properties["include_readme"] = map[string]any{
			"type":        "boolean",
			"description": "Also return the repository README body",
			"default":     false,
		}
	}
	return mcp.Tool{
		Name:        IDHubInspect,
		Description: "Inspect a hub repository: metadata, tags, files",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: properties,
			Required:   []string{"repo_id"},
		},
	}
}

func buildDescriptors() []Descriptor {
	return []Descriptor{
		{IDSpaceSearch, mcp.Tool{
			Name:        IDSpaceSearch,
			Description: "Search hosted Spaces by text query",
			InputSchema: searchSchema("spaces"),
		}},
		{IDModelSearch, mcp.Tool{
			Name:        IDModelSearch,
			Description: "Search models by text query",
			InputSchema: searchSchema("models"),
		}},
		{IDModelDetail, mcp.Tool{
			Name:        IDModelDetail,
			Description: "Get detailed metadata for one model",
			InputSchema: detailSchema("model"),
		}},
		{IDDatasetSearch, mcp.Tool{
			Name:        IDDatasetSearch,
			Description: "Search datasets by text query",
			InputSchema: searchSchema("datasets"),
		}},
		{IDDatasetDetail, mcp.Tool{
			Name:        IDDatasetDetail,
			Description: "Get detailed metadata for one dataset",
			InputSchema: detailSchema("dataset"),
		}},
		{IDPaperSearch, mcp.Tool{
			Name:        IDPaperSearch,
			Description: "Search research papers indexed on the hub",
			InputSchema: searchSchema("papers"),
		}},
		{IDDocSearch, mcp.Tool{
			Name:        IDDocSearch,
			Description: "Search the hub documentation",
			InputSchema: searchSchema("documentation"),
		}},
		{IDDocFetch, mcp.Tool{
			Name:        IDDocFetch,
			Description: "Fetch one documentation page as markdown",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"doc_url": map[string]any{
						"type":        "string",
						"description": "URL of the documentation page",
					},
				},
				Required: []string{"doc_url"},
			},
		}},
		{IDWhoami, mcp.Tool{
			Name:        IDWhoami,
			Description: "Describe the authenticated caller",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]any{},
			},
		}},
		{IDHubInspect, hubInspectTool(false)},
		{IDJobs, mcp.Tool{
			Name:        IDJobs,
			Description: "Run a compute job on the hub and return its output",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"command": map[string]any{
						"type":        "string",
						"description": "Command to run",
					},
					"flavor": map[string]any{
						"type":        "string",
						"description": "Hardware flavor",
						"default":     "cpu-basic",
					},
				},
				Required: []string{"command"},
			},
		}},
		{IDUseSpace, mcp.Tool{
			Name:        IDUseSpace,
			Description: "Attach a Space's tools to this session by space id",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"space_id": map[string]any{
						"type":        "string",
						"description": "Space id as owner/name",
					},
				},
				Required: []string{"space_id"},
			},
		}},
		{IDDynamicSpace, mcp.Tool{
			Name:        IDDynamicSpace,
			Description: "Call a tool on any Space without attaching it",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"space_id": map[string]any{
						"type":        "string",
						"description": "Space id as owner/name",
					},
					"tool_name": map[string]any{
						"type":        "string",
						"description": "Upstream tool name within the space",
					},
					"arguments": map[string]any{
						"type":        "object",
						"description": "Arguments forwarded to the space tool",
					},
				},
				Required: []string{"space_id", "tool_name"},
			},
		}},
	}
}
