// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package toolsets decides which built-in tools and which remote spaces a
// request sees, applying the precedence bouquet > mix > user settings >
// fallback.
package toolsets

import (
	"github.com/stacklok/hubgate/pkg/tools"
)

// BouquetAll is the preset that enables everything, including
// settings-provided space endpoints.
const BouquetAll = "all"

// bouquets is the closed set of named presets. Unknown names fall through
// the selection precedence silently.
var bouquets = map[string][]string{
	"search": {
		tools.IDSpaceSearch,
		tools.IDModelSearch,
		tools.IDDatasetSearch,
		tools.IDPaperSearch,
		tools.IDDocSearch,
	},
	"docs": {
		tools.IDDocSearch,
		tools.IDDocFetch,
	},
	"spaces": {
		tools.IDSpaceSearch,
		tools.IDUseSpace,
		tools.IDDynamicSpace,
	},
	"hf_api": {
		tools.IDModelSearch,
		tools.IDModelDetail,
		tools.IDDatasetSearch,
		tools.IDDatasetDetail,
		tools.IDPaperSearch,
		tools.IDSpaceSearch,
		tools.IDWhoami,
		tools.IDHubInspect,
	},
	"jobs": {
		tools.IDJobs,
		tools.IDWhoami,
	},
	BouquetAll: tools.AllIDs(),

	// Fixed-surface presets used by integration smoke tests against a
	// deployed gateway.
	"test_minimal": {
		tools.IDWhoami,
	},
	"test_readme": {
		tools.IDHubInspect,
		tools.MarkerReadmeInclude,
	},
}

// Bouquet returns the tool ids of a named preset.
func Bouquet(name string) ([]string, bool) {
	ids, ok := bouquets[name]
	return ids, ok
}
