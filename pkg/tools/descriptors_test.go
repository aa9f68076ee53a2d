// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorsCoverEveryTool(t *testing.T) {
	t.Parallel()

	descriptors := Descriptors(false)
	require.Len(t, descriptors, len(AllIDs()))

	seen := make(map[string]bool)
	for _, d := range descriptors {
		assert.Equal(t, d.ID, d.Tool.Name, "tool name matches its id")
		assert.NotEmpty(t, d.Tool.Description)
		seen[d.ID] = true
	}
	for _, id := range AllIDs() {
		assert.True(t, seen[id], "missing descriptor for %s", id)
	}
}

func TestDescriptorsReadmeInclude(t *testing.T) {
	t.Parallel()

	find := func(descriptors []Descriptor) map[string]any {
		for _, d := range descriptors {
			if d.ID == IDHubInspect {
				return d.Tool.InputSchema.Properties
			}
		}
		t.Fatal("hub inspect descriptor missing")
		return nil
	}

	assert.NotContains(t, find(Descriptors(false)), "include_readme")
	assert.Contains(t, find(Descriptors(true)), "include_readme")

	// The shared base set stays untouched.
	assert.NotContains(t, find(Descriptors(false)), "include_readme")
}

func TestIsMarker(t *testing.T) {
	t.Parallel()

	assert.True(t, IsMarker(MarkerReadmeInclude))
	assert.False(t, IsMarker(IDWhoami))
}

func TestIntArg(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5, intArg(map[string]any{"limit": float64(5)}, "limit"))
	assert.Equal(t, 7, intArg(map[string]any{"limit": 7}, "limit"))
	assert.Zero(t, intArg(map[string]any{"limit": "ten"}, "limit"))
	assert.Zero(t, intArg(map[string]any{}, "limit"))
}
