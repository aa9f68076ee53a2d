// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package toolsets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/hubgate/pkg/hub"
	"github.com/stacklok/hubgate/pkg/spaces"
	"github.com/stacklok/hubgate/pkg/tools"
)

func TestSelectPrecedence(t *testing.T) {
	t.Parallel()

	settings := &hub.UserSettings{
		BuiltInTools: []string{tools.IDWhoami, tools.IDJobs},
		GradioSpaces: []string{"owner/space"},
	}

	tests := []struct {
		name     string
		in       Inputs
		wantMode Mode
		wantIDs  []string
	}{
		{
			name:     "bouquet wins over everything",
			in:       Inputs{Bouquet: "docs", Mix: "search", Settings: settings, SettingsSource: SettingsExternal},
			wantMode: ModeBouquetOverride,
			wantIDs:  []string{tools.IDDocSearch, tools.IDDocFetch},
		},
		{
			name:     "unknown bouquet falls through to settings",
			in:       Inputs{Bouquet: "nonsense", Settings: settings, SettingsSource: SettingsExternal},
			wantMode: ModeExternalAPI,
			wantIDs:  []string{tools.IDWhoami, tools.IDJobs},
		},
		{
			name:     "mix merges settings first then preset",
			in:       Inputs{Mix: "docs", Settings: settings, SettingsSource: SettingsExternal},
			wantMode: ModeMix,
			wantIDs:  []string{tools.IDWhoami, tools.IDJobs, tools.IDDocSearch, tools.IDDocFetch},
		},
		{
			name:     "mix without settings falls through",
			in:       Inputs{Mix: "docs"},
			wantMode: ModeFallback,
			wantIDs:  tools.AllIDs(),
		},
		{
			name:     "internal settings source",
			in:       Inputs{Settings: settings, SettingsSource: SettingsInternal},
			wantMode: ModeInternalAPI,
			wantIDs:  []string{tools.IDWhoami, tools.IDJobs},
		},
		{
			name:     "no inputs means fallback to all",
			in:       Inputs{},
			wantMode: ModeFallback,
			wantIDs:  tools.AllIDs(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Select(tt.in)
			assert.Equal(t, tt.wantMode, got.Mode)
			assert.Equal(t, tt.wantIDs, got.EnabledToolIDs)
		})
	}
}

func TestSelectMixDeduplicates(t *testing.T) {
	t.Parallel()

	settings := &hub.UserSettings{
		BuiltInTools: []string{tools.IDDocSearch, tools.IDWhoami},
	}

	got := Select(Inputs{Mix: "docs", Settings: settings, SettingsSource: SettingsExternal})
	require.Equal(t, ModeMix, got.Mode)
	assert.Equal(t, []string{tools.IDDocSearch, tools.IDWhoami, tools.IDDocFetch}, got.EnabledToolIDs)
}

func TestSelectGradioOverlay(t *testing.T) {
	t.Parallel()

	settings := &hub.UserSettings{
		BuiltInTools: []string{tools.IDWhoami},
		GradioSpaces: []string{"owner/space", "not-a-space"},
	}

	tests := []struct {
		name         string
		in           Inputs
		wantSpaces   []spaces.ID
		wantDisabled bool
	}{
		{
			name:         "none sentinel disables settings spaces too",
			in:           Inputs{GradioHeader: "none", Settings: settings, SettingsSource: SettingsExternal},
			wantDisabled: true,
		},
		{
			name:       "explicit header is honored verbatim",
			in:         Inputs{GradioHeader: "a/b,c/d", Settings: settings, SettingsSource: SettingsExternal},
			wantSpaces: []spaces.ID{{Owner: "a", Name: "b"}, {Owner: "c", Name: "d"}},
		},
		{
			name:       "settings spaces used without header, invalid ids skipped",
			in:         Inputs{Settings: settings, SettingsSource: SettingsExternal},
			wantSpaces: []spaces.ID{{Owner: "owner", Name: "space"}},
		},
		{
			name:       "non-all bouquet override skips settings spaces",
			in:         Inputs{Bouquet: "docs", Settings: settings, SettingsSource: SettingsExternal},
			wantSpaces: nil,
		},
		{
			name:       "all bouquet keeps settings spaces",
			in:         Inputs{Bouquet: BouquetAll, Settings: settings, SettingsSource: SettingsExternal},
			wantSpaces: []spaces.ID{{Owner: "owner", Name: "space"}},
		},
		{
			name:       "bouquet override with explicit header keeps the header spaces",
			in:         Inputs{Bouquet: "docs", GradioHeader: "a/b", Settings: settings, SettingsSource: SettingsExternal},
			wantSpaces: []spaces.ID{{Owner: "a", Name: "b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Select(tt.in)
			assert.Equal(t, tt.wantDisabled, got.GradioDisabled)
			assert.Equal(t, tt.wantSpaces, got.GradioSpaces)
		})
	}
}

func TestSelectSearchEnablesFetch(t *testing.T) {
	t.Parallel()

	settings := &hub.UserSettings{BuiltInTools: []string{tools.IDDocSearch}}

	got := Select(Inputs{Settings: settings, SettingsSource: SettingsExternal, SearchEnablesFetch: true})
	assert.Contains(t, got.EnabledToolIDs, tools.IDDocFetch)

	// Without search in the set, fetch is not added.
	settings = &hub.UserSettings{BuiltInTools: []string{tools.IDWhoami}}
	got = Select(Inputs{Settings: settings, SettingsSource: SettingsExternal, SearchEnablesFetch: true})
	assert.NotContains(t, got.EnabledToolIDs, tools.IDDocFetch)
}

func TestBouquet(t *testing.T) {
	t.Parallel()

	ids, ok := Bouquet(BouquetAll)
	require.True(t, ok)
	assert.Equal(t, tools.AllIDs(), ids)

	_, ok = Bouquet("unknown")
	assert.False(t, ok)
}
