// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package discovery resolves space identifiers into registrable tool sets.
//
// Discovery runs in two phases. The metadata phase resolves each space name
// against the hub in bounded parallel batches, consulting a TTL cache with
// ETag revalidation. The schema phase fetches tool schemas from the
// surviving gradio spaces, all in parallel, each under its own timeout.
// Partial success is the normal mode: one slow or broken space never fails
// the others.
package discovery

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stacklok/hubgate/pkg/config"
	"github.com/stacklok/hubgate/pkg/hub"
	"github.com/stacklok/hubgate/pkg/logger"
	"github.com/stacklok/hubgate/pkg/networking"
	"github.com/stacklok/hubgate/pkg/spaces"
	"github.com/stacklok/hubgate/pkg/spaces/cache"
)

// MetadataFetcher is the narrow hub surface discovery depends on.
// *hub.Client satisfies it.
type MetadataFetcher interface {
	SpaceInfo(ctx context.Context, id spaces.ID, token, etag string, timeout time.Duration) (*hub.SpaceInfoResult, error)
}

// Options tunes a single discovery run.
type Options struct {
	// SkipSchemas stops after the metadata phase. Used when the caller only
	// needs to know which spaces exist, not their tools.
	SkipSchemas bool
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithHTTPClient replaces the schema-fetch HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Discoverer) { d.httpClient = c }
}

// WithSchemaURLFunc replaces how a space's schema endpoint is derived.
// Tests point this at an httptest server.
func WithSchemaURLFunc(fn func(*spaces.Space) string) Option {
	return func(d *Discoverer) { d.schemaURL = fn }
}

// Discoverer owns the process-wide metadata and schema caches and performs
// discovery runs against the hub and the spaces themselves.
type Discoverer struct {
	hub        MetadataFetcher
	settings   *config.Settings
	httpClient *http.Client
	schemaURL  func(*spaces.Space) string

	metadata *cache.Cache[*spaces.Metadata]
	schemas  *cache.Cache[*spaces.Schema]
}

// New creates a Discoverer with fresh caches sized by the settings TTLs.
func New(fetcher MetadataFetcher, settings *config.Settings, opts ...Option) *Discoverer {
	d := &Discoverer{
		hub:        fetcher,
		settings:   settings,
		httpClient: networking.NewHTTPClientBuilder().Build(),
		schemaURL:  (*spaces.Space).SchemaURL,
		metadata:   cache.New[*spaces.Metadata](settings.SpaceMetadataTTL),
		schemas:    cache.New[*spaces.Schema](settings.SchemaTTL),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MetadataCache exposes the metadata cache for tests and management stats.
func (d *Discoverer) MetadataCache() *cache.Cache[*spaces.Metadata] { return d.metadata }

// SchemaCache exposes the schema cache for tests and management stats.
func (d *Discoverer) SchemaCache() *cache.Cache[*spaces.Schema] { return d.schemas }

// ClearCaches drops both caches. Management surface only.
func (d *Discoverer) ClearCaches() {
	d.metadata.Clear()
	d.schemas.Clear()
}

// Discover resolves the given space ids into combined records. The caller's
// token is forwarded to the hub (so private metadata resolves) and to
// private spaces' schema endpoints. Failed spaces are logged and omitted.
func (d *Discoverer) Discover(ctx context.Context, ids []spaces.ID, token string, opts Options) []spaces.Space {
	// Copy the tunables once so a concurrent reconfiguration cannot skew a
	// run halfway through.
	batchSize := d.settings.DiscoveryConcurrency
	if batchSize <= 0 {
		batchSize = 1
	}
	infoTimeout := d.settings.SpaceInfoTimeout
	schemaTimeout := d.settings.SchemaTimeout

	resolved := d.metadataPhase(ctx, ids, token, batchSize, infoTimeout)

	// Only gradio spaces with a serving subdomain can be mediated.
	candidates := resolved[:0]
	for _, s := range resolved {
		if s.SDK == spaces.SDKGradio && s.Subdomain != "" {
			candidates = append(candidates, s)
		} else {
			logger.Debugw("skipping non-gradio space", "space", s.ID.String(), "sdk", s.SDK)
		}
	}

	if opts.SkipSchemas {
		return candidates
	}
	return d.schemaPhase(ctx, candidates, token, schemaTimeout)
}

// metadataPhase resolves metadata for every id, in parallel batches of
// batchSize, preserving input order in the result.
func (d *Discoverer) metadataPhase(
	ctx context.Context, ids []spaces.ID, token string, batchSize int, timeout time.Duration,
) []spaces.Space {
	results := make([]*spaces.Space, len(ids))

	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))

		group, groupCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			group.Go(func() error {
				meta, err := d.resolveMetadata(groupCtx, ids[i], token, timeout)
				if err != nil {
					logger.Warnw("space metadata fetch failed", "space", ids[i].String(), "error", err)
					return nil
				}
				results[i] = &spaces.Space{
					ID:        ids[i],
					Private:   meta.Private,
					SDK:       meta.SDK,
					Subdomain: meta.Subdomain,
					Emoji:     meta.Emoji,
					Runtime:   meta.Runtime,
				}
				return nil
			})
		}
		// Failures are swallowed per space; Wait only observes ctx.
		_ = group.Wait()
		if ctx.Err() != nil {
			break
		}
	}

	out := make([]spaces.Space, 0, len(ids))
	for _, s := range results {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// resolveMetadata answers one space's metadata from cache, via conditional
// revalidation, or with a full fetch. Private metadata is never stored.
func (d *Discoverer) resolveMetadata(
	ctx context.Context, id spaces.ID, token string, timeout time.Duration,
) (*spaces.Metadata, error) {
	key := id.String()

	if meta, ok := d.metadata.Get(key); ok {
		return meta, nil
	}

	var etag string
	stale, _, hadStale := d.metadata.GetForRevalidation(key)
	if hadStale {
		etag = stale.ETag
	}

	result, err := d.hub.SpaceInfo(ctx, id, token, etag, timeout)
	if err != nil {
		return nil, err
	}

	if result.NotModified {
		if !hadStale {
			// The hub honored an If-None-Match we never sent; treat as a
			// failed fetch rather than invent metadata.
			return nil, hub.ErrUnexpectedNotModified
		}
		if fetchedAt, ok := d.metadata.Refresh(key); ok {
			stale.FetchedAt = fetchedAt
		}
		return stale, nil
	}

	meta := result.Metadata
	meta.FetchedAt = time.Now()
	if !meta.Private {
		d.metadata.Set(key, meta)
	}
	return meta, nil
}

// schemaPhase fetches tool schemas for all candidates in parallel and
// returns only the spaces that yielded at least one tool.
func (d *Discoverer) schemaPhase(
	ctx context.Context, candidates []spaces.Space, token string, timeout time.Duration,
) []spaces.Space {
	group, groupCtx := errgroup.WithContext(ctx)
	keep := make([]bool, len(candidates))

	for i := range candidates {
		group.Go(func() error {
			s := &candidates[i]
			schema, err := d.resolveSchema(groupCtx, s, token, timeout)
			if err != nil {
				logger.Warnw("space schema fetch failed", "space", s.ID.String(), "error", err)
				return nil
			}
			s.Tools = schema.Tools
			keep[i] = len(schema.Tools) > 0
			return nil
		})
	}
	_ = group.Wait()

	out := make([]spaces.Space, 0, len(candidates))
	for i, s := range candidates {
		if keep[i] {
			out = append(out, s)
		}
	}
	return out
}

// resolveSchema answers one space's schema from cache or with a fetch.
// Private schemas are never stored.
func (d *Discoverer) resolveSchema(
	ctx context.Context, s *spaces.Space, token string, timeout time.Duration,
) (*spaces.Schema, error) {
	key := s.ID.String()

	if !s.Private {
		if schema, ok := d.schemas.Get(key); ok {
			return schema, nil
		}
	}

	schema, err := d.fetchSchema(ctx, s, token, timeout)
	if err != nil {
		return nil, err
	}

	if !s.Private {
		d.schemas.Set(key, schema)
	}
	return schema, nil
}
