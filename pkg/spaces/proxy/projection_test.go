// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectInputSchemaPrimitives(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": "The prompt",
			},
			"steps": map[string]any{
				"type":    "number",
				"default": float64(25),
			},
			"mode": map[string]any{
				"type": "string",
				"enum": []any{"fast", "quality"},
			},
		},
		"required": []any{"prompt"},
	}

	out := ProjectInputSchema(raw)
	assert.Equal(t, "object", out.Type)
	assert.Equal(t, []string{"prompt"}, out.Required)

	prompt := out.Properties["prompt"].(map[string]any)
	assert.Equal(t, "string", prompt["type"])
	assert.Equal(t, "The prompt", prompt["description"])

	steps := out.Properties["steps"].(map[string]any)
	assert.Equal(t, float64(25), steps["default"])

	mode := out.Properties["mode"].(map[string]any)
	assert.Equal(t, []any{"fast", "quality"}, mode["enum"])
}

func TestProjectInputSchemaRequiredDropsDefault(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":    "string",
				"default": "hello",
			},
		},
		"required": []any{"prompt"},
	}

	out := ProjectInputSchema(raw)
	prompt := out.Properties["prompt"].(map[string]any)
	_, hasDefault := prompt["default"]
	assert.False(t, hasDefault, "defaults must not appear on required fields")
}

func TestProjectInputSchemaArrays(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"properties": map[string]any{
			"tags": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":   "string",
					"format": "uri",
				},
			},
		},
	}

	out := ProjectInputSchema(raw)
	tags := out.Properties["tags"].(map[string]any)
	items := tags["items"].(map[string]any)
	assert.Equal(t, "string", items["type"])
	_, hasFormat := items["format"]
	assert.False(t, hasFormat, "unsupported item constructs are dropped")
}

func TestProjectInputSchemaFileData(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"properties": map[string]any{
			"audio": map[string]any{
				"type":        "object",
				"description": "Input audio",
				"properties": map[string]any{
					"path":      map[string]any{"type": "string"},
					"url":       map[string]any{"type": "string"},
					"orig_name": map[string]any{"type": "string"},
					"mime_type": map[string]any{"type": "string"},
					"meta":      map[string]any{"type": "object"},
				},
			},
		},
	}

	out := ProjectInputSchema(raw)
	audio := out.Properties["audio"].(map[string]any)
	require.Equal(t, "object", audio["type"])
	assert.Equal(t, "Input audio", audio["description"])
	assert.Equal(t, []string{"path"}, audio["required"])

	props := audio["properties"].(map[string]any)
	for _, key := range []string{"path", "url", "size", "orig_name", "mime_type"} {
		assert.Contains(t, props, key)
	}
}

func TestProjectInputSchemaShallowObject(t *testing.T) {
	t.Parallel()

	raw := map[string]any{
		"properties": map[string]any{
			"options": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"width":  map[string]any{"type": "number", "default": float64(512)},
					"height": map[string]any{"type": "number"},
				},
				"required": []any{"height"},
			},
		},
	}

	out := ProjectInputSchema(raw)
	options := out.Properties["options"].(map[string]any)
	assert.Equal(t, []string{"height"}, options["required"])

	nested := options["properties"].(map[string]any)
	width := nested["width"].(map[string]any)
	assert.Equal(t, float64(512), width["default"])
}

func TestProjectInputSchemaNil(t *testing.T) {
	t.Parallel()

	out := ProjectInputSchema(nil)
	assert.Equal(t, "object", out.Type)
	assert.Empty(t, out.Properties)
}
