// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// fileDataSchema is the canonical projection of Gradio's FileData wrapper:
// everything a caller needs to hand the space a file by URL.
func fileDataSchema(description string) map[string]any {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":      map[string]any{"type": "string", "description": "Path or URL of the file"},
			"url":       map[string]any{"type": "string"},
			"size":      map[string]any{"type": "number"},
			"orig_name": map[string]any{"type": "string"},
			"mime_type": map[string]any{"type": "string"},
		},
		"required": []string{"path"},
	}
	if description != "" {
		s["description"] = description
	}
	return s
}

// ProjectInputSchema projects an upstream JSON schema into the restricted
// shape registered outward: primitives, enums, arrays of primitives,
// shallow objects, and FileData wrappers. Unsupported constructs are
// dropped rather than passed through, so clients never see a schema the
// proxy cannot honor.
func ProjectInputSchema(raw map[string]any) mcp.ToolInputSchema {
	out := mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]any{},
	}
	if raw == nil {
		return out
	}

	required := stringSlice(raw["required"])
	out.Required = required
	requiredSet := make(map[string]bool, len(required))
	for _, name := range required {
		requiredSet[name] = true
	}

	props, _ := raw["properties"].(map[string]any)
	for name, p := range props {
		prop, ok := p.(map[string]any)
		if !ok {
			continue
		}
		out.Properties[name] = projectProperty(prop, requiredSet[name])
	}
	return out
}

// projectProperty projects a single property schema. Defaults apply only
// to optional fields: a default on a required field would let clients omit
// an argument the upstream insists on.
func projectProperty(prop map[string]any, required bool) map[string]any {
	description, _ := prop["description"].(string)

	if isFileData(prop) {
		return fileDataSchema(description)
	}

	out := map[string]any{}
	if t, ok := prop["type"]; ok {
		out["type"] = t
	}
	if description != "" {
		out["description"] = description
	}
	if enum, ok := prop["enum"]; ok {
		out["enum"] = enum
	}
	if !required {
		if def, ok := prop["default"]; ok {
			out["default"] = def
		}
	}
	if items, ok := prop["items"].(map[string]any); ok {
		projected := map[string]any{}
		if t, ok := items["type"]; ok {
			projected["type"] = t
		}
		if enum, ok := items["enum"]; ok {
			projected["enum"] = enum
		}
		out["items"] = projected
	}
	// Shallow objects keep one level of properties, each projected with
	// the same rules.
	if nested, ok := prop["properties"].(map[string]any); ok {
		nestedOut := map[string]any{}
		nestedRequired := stringSlice(prop["required"])
		nestedSet := make(map[string]bool, len(nestedRequired))
		for _, n := range nestedRequired {
			nestedSet[n] = true
		}
		for n, np := range nested {
			if npm, ok := np.(map[string]any); ok {
				nestedOut[n] = projectProperty(npm, nestedSet[n])
			}
		}
		out["properties"] = nestedOut
		if len(nestedRequired) > 0 {
			out["required"] = nestedRequired
		}
	}
	return out
}

// isFileData detects Gradio's FileData wrapper by its characteristic
// nested properties.
func isFileData(prop map[string]any) bool {
	nested, ok := prop["properties"].(map[string]any)
	if !ok {
		return false
	}
	if _, hasPath := nested["path"]; !hasPath {
		return false
	}
	_, hasMeta := nested["meta"]
	_, hasMime := nested["mime_type"]
	_, hasOrig := nested["orig_name"]
	return hasMeta || hasMime || hasOrig
}

func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
