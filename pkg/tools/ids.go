// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package tools defines the built-in tool surface: stable tool identifiers,
// precomputed descriptors, and registration onto a scoped MCP server.
package tools

// Built-in tool identifiers. These are the names clients call and the
// values carried in user settings and bouquet presets.
const (
	IDSpaceSearch   = "space_search"
	IDModelSearch   = "model_search"
	IDModelDetail   = "model_detail"
	IDDatasetSearch = "dataset_search"
	IDDatasetDetail = "dataset_detail"
	IDPaperSearch   = "paper_search"
	IDDocSearch     = "hf_doc_search"
	IDDocFetch      = "hf_doc_fetch"
	IDWhoami        = "hf_whoami"
	IDHubInspect    = "hub_inspect"
	IDJobs          = "hf_jobs"
	IDUseSpace      = "use_space"
	IDDynamicSpace  = "dynamic_space"
)

// MarkerReadmeInclude is not a tool. Its presence in an enabled-tool list
// switches the hub_inspect schema to expose the include_readme flag.
const MarkerReadmeInclude = "readme_include"

// AllIDs returns every built-in tool id, in registration order.
func AllIDs() []string {
	return []string{
		IDSpaceSearch,
		IDModelSearch,
		IDModelDetail,
		IDDatasetSearch,
		IDDatasetDetail,
		IDPaperSearch,
		IDDocSearch,
		IDDocFetch,
		IDWhoami,
		IDHubInspect,
		IDJobs,
		IDUseSpace,
		IDDynamicSpace,
	}
}

// IsMarker reports whether id is a behavioral marker rather than a tool.
func IsMarker(id string) bool {
	return id == MarkerReadmeInclude
}
