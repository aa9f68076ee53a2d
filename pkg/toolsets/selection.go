// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package toolsets

import (
	"github.com/stacklok/hubgate/pkg/hub"
	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/spaces"
	"github.com/stacklok/hubgate/pkg/tools"
)

// Mode records which precedence branch produced a selection.
type Mode string

// Selection modes, in decreasing precedence.
const (
	ModeBouquetOverride Mode = "BOUQUET_OVERRIDE"
	ModeMix             Mode = "MIX"
	ModeExternalAPI     Mode = "EXTERNAL_API"
	ModeInternalAPI     Mode = "INTERNAL_API"
	ModeFallback        Mode = "FALLBACK"
)

// SettingsSource says where user settings came from, for the mode label.
type SettingsSource int

// Settings sources.
const (
	SettingsNone SettingsSource = iota
	SettingsInternal
	SettingsExternal
)

// Inputs are the request-scoped facts the strategy decides on.
type Inputs struct {
	// Bouquet is the x-mcp-bouquet header value, empty when absent.
	Bouquet string

	// Mix is the x-mcp-mix header value, empty when absent.
	Mix string

	// GradioHeader is the raw x-mcp-gradio header value. Empty means the
	// header was absent, which is different from the "none" sentinel.
	GradioHeader string

	// Settings are the caller's stored settings, nil when unavailable.
	Settings *hub.UserSettings

	// SettingsSource labels where Settings came from.
	SettingsSource SettingsSource

	// SearchEnablesFetch expands hf_doc_fetch whenever hf_doc_search is
	// selected.
	SearchEnablesFetch bool
}

// Result is the decided tool surface for one request.
type Result struct {
	Mode           Mode
	EnabledToolIDs []string
	Reason         string

	// GradioSpaces are the space ids whose tools should be attached.
	GradioSpaces []spaces.ID

	// GradioDisabled is true when the caller sent the "none" sentinel;
	// it wins over every other source of space endpoints.
	GradioDisabled bool
}

// Select applies the precedence rules and the gradio overlay.
func Select(in Inputs) Result {
	result := selectBuiltIns(in)

	if in.SearchEnablesFetch {
		result.EnabledToolIDs = expandDocFetch(result.EnabledToolIDs)
	}

	applyGradioOverlay(in, &result)
	return result
}

// selectBuiltIns walks the precedence chain: bouquet > mix > settings >
// fallback. First match wins.
func selectBuiltIns(in Inputs) Result {
	if in.Bouquet != "" {
		if ids, ok := Bouquet(in.Bouquet); ok {
			return Result{
				Mode:           ModeBouquetOverride,
				EnabledToolIDs: dedup(ids),
				Reason:         "bouquet header " + in.Bouquet,
			}
		}
		logger.Debugw("unknown bouquet, falling through", "bouquet", in.Bouquet)
	}

	if in.Mix != "" && in.Settings != nil {
		if ids, ok := Bouquet(in.Mix); ok {
			return Result{
				Mode:           ModeMix,
				EnabledToolIDs: dedup(append(append([]string{}, in.Settings.BuiltInTools...), ids...)),
				Reason:         "user settings mixed with bouquet " + in.Mix,
			}
		}
		logger.Debugw("unknown mix bouquet, falling through", "mix", in.Mix)
	}

	if in.Settings != nil {
		mode := ModeInternalAPI
		reason := "user settings"
		if in.SettingsSource == SettingsExternal {
			mode = ModeExternalAPI
			reason = "user settings from settings API"
		}
		return Result{
			Mode:           mode,
			EnabledToolIDs: dedup(in.Settings.BuiltInTools),
			Reason:         reason,
		}
	}

	return Result{
		Mode:           ModeFallback,
		EnabledToolIDs: tools.AllIDs(),
		Reason:         "no settings available, all built-in tools enabled",
	}
}

// applyGradioOverlay decides the space endpoints, orthogonally to the
// built-in selection:
//
//   - "none" disables every endpoint, including settings-provided ones.
//   - An explicit list is always honored verbatim.
//   - Without an explicit header, settings-provided endpoints are skipped
//     under a non-"all" bouquet override so the override stays exclusive.
func applyGradioOverlay(in Inputs, result *Result) {
	if spaces.Disabled(in.GradioHeader) {
		result.GradioDisabled = true
		return
	}

	if in.GradioHeader != "" {
		result.GradioSpaces = spaces.ParseList(in.GradioHeader)
		return
	}

	if result.Mode == ModeBouquetOverride && in.Bouquet != BouquetAll {
		return
	}
	if in.Settings != nil {
		for _, raw := range in.Settings.GradioSpaces {
			if id, ok := spaces.ParseID(raw); ok {
				result.GradioSpaces = append(result.GradioSpaces, id)
			} else {
				logger.Warnw("ignoring invalid space id in user settings", "value", raw)
			}
		}
	}
}

// expandDocFetch adds hf_doc_fetch when hf_doc_search is enabled.
func expandDocFetch(ids []string) []string {
	hasSearch := false
	for _, id := range ids {
		if id == tools.IDDocFetch {
			return ids
		}
		if id == tools.IDDocSearch {
			hasSearch = true
		}
	}
	if hasSearch {
		return append(ids, tools.IDDocFetch)
	}
	return ids
}

// dedup removes duplicates preserving first-occurrence order.
func dedup(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
