// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/networking"
)

// imagesOmittedText replaces a result that consisted only of image blocks
// after the image filter ran.
const imagesOmittedText = "Image content was omitted from this response. " +
	"Remove the no-image-content option to receive images."

// ClientOpenAI is the client name that opts a caller into URL extraction.
const ClientOpenAI = "openai-mcp"

// mcpuiMarker in a tool name requests the audio-player resource embedding.
const mcpuiMarker = "_mcpui"

// urlPattern matches a bare URL, optionally labeled the way Gradio labels
// generated images.
var urlPattern = regexp.MustCompile(`^(?:Image URL:\s*)?(https?://\S+)`)

// maxEmbeddedResourceBytes caps a fetched media resource.
const maxEmbeddedResourceBytes = 8 << 20

// FilterImages drops every image content block from result when enabled.
// A result emptied by the filter is replaced with a single explanatory
// text block so the caller never receives an empty content array.
func FilterImages(result *mcp.CallToolResult, enabled bool) {
	if !enabled || result == nil || len(result.Content) == 0 {
		return
	}

	filtered := result.Content[:0]
	for _, block := range result.Content {
		if _, isImage := mcp.AsImageContent(block); isImage {
			continue
		}
		filtered = append(filtered, block)
	}
	if len(filtered) == 0 {
		filtered = append(filtered, mcp.NewTextContent(imagesOmittedText))
	}
	result.Content = filtered
}

// firstURL scans content blocks for the first URL: an image block's
// labeled URL text or any text block starting with http(s).
func firstURL(content []mcp.Content) string {
	for _, block := range content {
		text, ok := mcp.AsTextContent(block)
		if !ok {
			continue
		}
		if m := urlPattern.FindStringSubmatch(strings.TrimSpace(text.Text)); m != nil {
			return m[1]
		}
	}
	return ""
}

// ExtractURL sets the result's structured content to {url, spaceName} for
// callers that consume structured output, when the content carries a URL.
// Applied only for the client identity that requests it.
func ExtractURL(result *mcp.CallToolResult, callerClientName, spaceName string) {
	if result == nil || callerClientName != ClientOpenAI {
		return
	}
	if result.StructuredContent != nil {
		return
	}
	if url := firstURL(result.Content); url != "" {
		result.StructuredContent = map[string]any{
			"url":       url,
			"spaceName": spaceName,
		}
	}
}

// EmbedAudioResource handles tools whose name carries the mcpui marker:
// when the sole result block is a URL, the target is fetched and embedded
// as an audio-player UI resource. A failed fetch falls back to the URL.
func EmbedAudioResource(ctx context.Context, result *mcp.CallToolResult, outwardToolName string) {
	if result == nil || !strings.Contains(outwardToolName, mcpuiMarker) {
		return
	}
	if len(result.Content) != 1 {
		return
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		return
	}
	url := firstURL([]mcp.Content{*text})
	if url == "" || url != strings.TrimSpace(text.Text) {
		return
	}

	blob, mimeType, err := fetchResource(ctx, url)
	if err != nil {
		logger.Warnw("audio resource fetch failed, falling back to URL", "url", url, "error", err)
		return
	}

	result.Content = append(result.Content, mcp.NewEmbeddedResource(mcp.BlobResourceContents{
		URI:      "ui://audio-player/" + outwardToolName,
		MIMEType: mimeType,
		Blob:     base64.StdEncoding.EncodeToString(blob),
	}))
}

func fetchResource(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := networking.NewHTTPClientBuilder().Build().Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Debugf("Failed to close response body: %v", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, "", &networking.HTTPError{StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEmbeddedResourceBytes))
	if err != nil {
		return nil, "", err
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "audio/wav"
	}
	return body, mimeType, nil
}
