// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package guide runs the playlist to XMLTV pipeline: parse and deduplicate
// the playlist, resolve every channel to a TVPassport station, read the
// resolved stations' listings and render the document.
package guide

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/m3u2xmltv/internal/cache"
	"github.com/ManuGH/m3u2xmltv/internal/epg"
	xglog "github.com/ManuGH/m3u2xmltv/internal/log"
	"github.com/ManuGH/m3u2xmltv/internal/matcher"
	"github.com/ManuGH/m3u2xmltv/internal/metrics"
	"github.com/ManuGH/m3u2xmltv/internal/playlist"
	"github.com/ManuGH/m3u2xmltv/internal/telemetry"
)

const (
	tracerName = "m3u2xmltv/guide"

	// DocumentCacheKey holds the default playlist's guide. Override
	// playlists are built on demand and never stored.
	DocumentCacheKey  = "xmltv:root"
	overrideKeyPrefix = "xmltv:override:"
)

// ErrPanic wraps a panic recovered inside the pipeline.
var ErrPanic = errors.New("guide: pipeline panic")

// Service builds guide documents.
type Service struct {
	deps   Deps
	opts   Options
	loader *cache.Loader[[]byte]
	// overrides coalesces concurrent builds of the same override playlist
	// without keeping the result.
	overrides *cache.Loader[[]byte]
	tracer trace.Tracer
	logger zerolog.Logger
}

// New returns a Service. Zero durations and counts in opts fall back to
// DefaultOptions, except ResolveConcurrency where 0 means unbounded.
func New(deps Deps, opts Options) *Service {
	def := DefaultOptions()
	if opts.DefaultPlaylistURL == "" {
		opts.DefaultPlaylistURL = def.DefaultPlaylistURL
	}
	if opts.PlaylistTimeout <= 0 {
		opts.PlaylistTimeout = def.PlaylistTimeout
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = def.SearchTimeout
	}
	if opts.ScheduleTimeout <= 0 {
		opts.ScheduleTimeout = def.ScheduleTimeout
	}
	if opts.ResolveConcurrency < 0 {
		opts.ResolveConcurrency = def.ResolveConcurrency
	}
	if opts.ScheduleDays <= 0 {
		opts.ScheduleDays = def.ScheduleDays
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = def.CacheTTL
	}
	if opts.ListingsZone == nil {
		opts.ListingsZone = def.ListingsZone
	}

	if deps.Matcher == nil {
		deps.Matcher = matcher.Default()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemory[[]byte]()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	logger := xglog.WithComponent("guide")
	if deps.Logger != nil {
		logger = *deps.Logger
	}

	return &Service{
		deps:   deps,
		opts:   opts,
		loader:    cache.NewLoader(deps.Cache),
		overrides: cache.NewLoader(cache.NewNoOp[[]byte]()),
		tracer:    telemetry.Tracer(tracerName),
		logger:    logger,
	}
}

// Options returns the effective options.
func (s *Service) Options() Options { return s.opts }

// loaderFor returns the loader and key for a resolved playlist URL: the
// default playlist is cached under DocumentCacheKey, anything else only
// shares in-flight builds.
func (s *Service) loaderFor(playlistURL string) (*cache.Loader[[]byte], string) {
	if playlistURL == s.opts.DefaultPlaylistURL {
		return s.loader, DocumentCacheKey
	}
	return s.overrides, overrideKeyPrefix + playlistURL
}

func (s *Service) playlistURL(u string) string {
	if u == "" {
		return s.opts.DefaultPlaylistURL
	}
	return u
}

// Document returns the guide for playlistURL (the default playlist when
// empty). The default playlist's guide is served from the cache while
// fresh; override playlists are rebuilt per request. Concurrent callers for
// the same playlist share one build. Any failure yields the empty document,
// which is not cached.
func (s *Service) Document(ctx context.Context, playlistURL string) (doc []byte) {
	playlistURL = s.playlistURL(playlistURL)
	loader, key := s.loaderFor(playlistURL)
	logger := xglog.WithContext(ctx, s.logger)

	ctx, span := s.tracer.Start(ctx, "guide.document", trace.WithAttributes(
		attribute.String(telemetry.GuidePlaylistURLKey, playlistURL),
	))
	var spanErr error
	defer func() {
		if r := recover(); r != nil {
			spanErr = fmt.Errorf("%w: %v", ErrPanic, r)
			span.SetAttributes(telemetry.ErrorAttributes("panic")...)
			logger.Error().Str(xglog.FieldEvent, "guide.document.panic").
				Str(xglog.FieldPlaylistURL, playlistURL).
				Interface("panic", r).
				Msg("document build panicked")
			doc = epg.EmptyDocument()
		}
		telemetry.EndSpan(span, spanErr)
	}()

	out, outcome, err := loader.GetOrLoad(ctx, key, s.opts.CacheTTL, func(ctx context.Context) ([]byte, error) {
		return s.render(ctx, playlistURL)
	})
	metrics.IncCacheLookup(string(outcome))
	span.SetAttributes(telemetry.CacheAttributes(key, string(outcome))...)

	if err != nil {
		spanErr = err
		span.SetAttributes(telemetry.ErrorAttributes("fallback")...)
		metrics.IncDocument(metrics.OutcomeFallback)
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "guide.document.fallback").
			Str(xglog.FieldPlaylistURL, playlistURL).
			Msg("serving empty guide")
		return epg.EmptyDocument()
	}
	metrics.IncDocument(metrics.OutcomeSuccess)
	logger.Debug().
		Str(xglog.FieldEvent, "guide.document.served").
		Str(xglog.FieldCacheKey, key).
		Str("outcome", string(outcome)).
		Int(xglog.FieldBytes, len(out)).
		Msg("guide served")
	return out
}

// Invalidate drops the cached default guide.
func (s *Service) Invalidate() {
	s.loader.Forget(DocumentCacheKey)
}

// render runs Build and renders its result. Panics become ErrPanic errors so
// they are never cached.
func (s *Service) render(ctx context.Context, playlistURL string) (doc []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str(xglog.FieldEvent, "guide.render.panic").
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("pipeline panicked")
			doc, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	res, err := s.Build(ctx, playlistURL)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	_, span := s.tracer.Start(ctx, "guide.render")
	doc, err = epg.BuildDocument(res.Channels, res.Listings)
	telemetry.EndSpan(span, err)
	metrics.ObserveStage("render", time.Since(start))
	return doc, err
}

// Build runs the full pipeline for playlistURL without touching the cache.
// Only a playlist failure is returned as an error; per-channel failures
// shrink the result instead.
func (s *Service) Build(ctx context.Context, playlistURL string) (*Result, error) {
	playlistURL = s.playlistURL(playlistURL)
	runID := uuid.NewString()
	ctx = xglog.ContextWithRunID(ctx, runID)
	logger := xglog.WithContext(ctx, s.logger)
	started := time.Now()

	ctx, span := s.tracer.Start(ctx, "guide.build", trace.WithAttributes(
		attribute.String(telemetry.GuidePlaylistURLKey, playlistURL),
	))
	var spanErr error
	defer func() { telemetry.EndSpan(span, spanErr) }()

	items, err := s.loadPlaylist(ctx, playlistURL)
	if err != nil {
		spanErr = err
		return nil, err
	}
	metrics.SetChannels(len(items))

	resolved := s.resolve(ctx, items)

	now := s.deps.Clock()
	listings, stats, err := s.collect(ctx, items, resolved, now)
	if err != nil {
		spanErr = err
		return nil, err
	}

	res := &Result{
		Channels: make([]epg.ChannelInfo, 0, len(items)),
		Listings: listings,
		Items:    make([]playlist.Item, 0, len(items)),
		Resolved: resolved,
	}
	for _, it := range items {
		name := it.DisplayName()
		id := epg.ChannelID(name)
		res.Channels = append(res.Channels, epg.ChannelInfo{ID: id, DisplayName: name, Icon: it.TvgLogo})
		it.TvgID = id
		res.Items = append(res.Items, it)
	}

	stats.RunID = runID
	stats.Channels = len(items)
	stats.Resolved = len(resolved)
	stats.Programmes = len(listings)
	stats.Duration = time.Since(started)
	res.Stats = stats

	metrics.RecordBuild(stats.Programmes, stats.WithProgrammes)
	metrics.ObserveStage("total", stats.Duration)
	span.SetAttributes(telemetry.BuildAttributes(stats.Channels, stats.Resolved, stats.Programmes, stats.RowsDropped)...)

	logger.Info().
		Str(xglog.FieldEvent, "guide.build.done").
		Str(xglog.FieldPlaylistURL, playlistURL).
		Int("channels", stats.Channels).
		Int("resolved", stats.Resolved).
		Int("channels_with_data", stats.WithProgrammes).
		Int(xglog.FieldProgrammes, stats.Programmes).
		Int("rows_dropped", stats.RowsDropped).
		Int64(xglog.FieldDurationMS, stats.Duration.Milliseconds()).
		Msg("guide built")
	return res, nil
}

// Channels returns the deduplicated playlist with tvg-id rewritten to the
// guide channel id, without resolving any station.
func (s *Service) Channels(ctx context.Context, playlistURL string) ([]playlist.Item, error) {
	items, err := s.loadPlaylist(ctx, s.playlistURL(playlistURL))
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].TvgID = epg.ChannelID(items[i].DisplayName())
	}
	return items, nil
}

// loadPlaylist fetches, parses and deduplicates the playlist.
func (s *Service) loadPlaylist(ctx context.Context, playlistURL string) ([]playlist.Item, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "guide.playlist")
	var spanErr error
	defer func() {
		telemetry.EndSpan(span, spanErr)
		metrics.ObserveStage("playlist", time.Since(start))
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.PlaylistTimeout)
	defer cancel()
	text, err := s.deps.Playlist.Fetch(fetchCtx, playlistURL)
	if err != nil {
		spanErr = err
		return nil, fmt.Errorf("fetch playlist %s: %w", playlistURL, err)
	}

	parsed, err := playlist.ParseString(text)
	if err != nil {
		spanErr = err
		return nil, fmt.Errorf("parse playlist: %w", err)
	}
	items := playlist.Dedupe(parsed)
	span.SetAttributes(attribute.Int(telemetry.GuideChannelsKey, len(items)))

	logger := xglog.WithContext(ctx, s.logger)
	logger.Debug().
		Str(xglog.FieldEvent, "guide.playlist.loaded").
		Int("entries", len(parsed)).
		Int("unique", len(items)).
		Msg("playlist loaded")
	return items, nil
}
