// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/m3u2xmltv/internal/api"
	"github.com/ManuGH/m3u2xmltv/internal/api/middleware"
	"github.com/ManuGH/m3u2xmltv/internal/cache"
	"github.com/ManuGH/m3u2xmltv/internal/config"
	"github.com/ManuGH/m3u2xmltv/internal/daemon"
	"github.com/ManuGH/m3u2xmltv/internal/guide"
	xglog "github.com/ManuGH/m3u2xmltv/internal/log"
	"github.com/ManuGH/m3u2xmltv/internal/matcher"
	"github.com/ManuGH/m3u2xmltv/internal/platform/httpx"
	"github.com/ManuGH/m3u2xmltv/internal/playlist"
	"github.com/ManuGH/m3u2xmltv/internal/ratelimit"
	"github.com/ManuGH/m3u2xmltv/internal/telemetry"
	"github.com/ManuGH/m3u2xmltv/internal/tvpassport"
)

type runOptions struct {
	warm bool
	// ready, when set, receives the bound address once the server listens
	ready func(addr string)
}

// components is everything run wires together, split out for tests.
type components struct {
	server   *api.Server
	guide    *guide.Service
	hooks    []namedHook
	cacheErr error // redis failure that caused the memory fallback
}

type namedHook struct {
	name string
	fn   daemon.ShutdownHook
}

func buildComponents(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*components, error) {
	c := &components{}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	c.hooks = append(c.hooks, namedHook{"telemetry", tp.Shutdown})

	tables := matcher.DefaultTables()
	if cfg.Matcher.TablesFile != "" {
		if tables, err = matcher.LoadTablesFile(cfg.Matcher.TablesFile); err != nil {
			return nil, fmt.Errorf("load matcher tables: %w", err)
		}
		logger.Info().Str("path", cfg.Matcher.TablesFile).Msg("loaded matcher tables")
	}
	m := matcher.New(matcher.WithTables(tables), matcher.WithThreshold(cfg.Matcher.Threshold))

	var (
		docCache cache.Cache[[]byte]
		opts     []api.Option
	)
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		rc, err := cache.NewRedis[[]byte](cache.RedisConfig{
			Addr:      cfg.Cache.Redis.Addr,
			Password:  cfg.Cache.Redis.Password,
			DB:        cfg.Cache.Redis.DB,
			KeyPrefix: cfg.Cache.Redis.KeyPrefix,
		}, xglog.WithComponent("cache"))
		if err != nil {
			c.cacheErr = err
			logger.Warn().
				Err(err).
				Str("event", "cache.redis_unavailable").
				Msg("falling back to in-memory cache")
			docCache = cache.NewMemory[[]byte]()
			break
		}
		docCache = rc
		opts = append(opts, api.WithHealthCheck("cache", rc.HealthCheck))
		c.hooks = append(c.hooks, namedHook{"redis", func(context.Context) error { return rc.Close() }})
	default:
		docCache = cache.NewMemory[[]byte]()
	}

	source := tvpassport.New(
		tvpassport.WithBaseURL(cfg.Source.BaseURL),
		tvpassport.WithHTTPClient(tvpassport.NewHTTPClient(max(cfg.Source.SearchTimeout, cfg.Source.ScheduleTimeout))),
		tvpassport.WithPacer(ratelimit.NewPacer(cfg.Source.RatePerSecond, cfg.Source.Burst)),
		tvpassport.WithLogger(xglog.WithComponent("tvpassport")),
	)
	fetcher := playlist.NewFetcher(httpx.NewClient(cfg.Playlist.Timeout), cfg.Playlist.Timeout)

	c.guide = guide.New(guide.Deps{
		Playlist: fetcher,
		Schedule: source,
		Matcher:  m,
		Cache:    docCache,
	}, cfg.GuideOptions())

	tracing := ""
	if cfg.Telemetry.Enabled {
		tracing = cfg.Telemetry.ServiceName + "-http"
	}
	c.server = api.New(c.guide, api.Config{
		Version: cfg.Version,
		Stack: middleware.StackConfig{
			EnableSecurityHeaders: true,
			EnableMetrics:         true,
			TracingService:        tracing,
			EnableLogging:         true,
			RateLimitRequests:     cfg.HTTP.RateLimitRequests,
			RateLimitWindow:       cfg.HTTP.RateLimitWindow,
		},
	}, opts...)

	return c, nil
}

// run serves the guide until ctx is cancelled.
func run(ctx context.Context, cfg config.AppConfig, ro runOptions) error {
	logger := xglog.WithComponent("daemon")

	c, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}

	mgr, err := daemon.NewManager(daemon.ServerConfigFrom(cfg), daemon.Deps{
		Logger:     logger,
		APIHandler: c.server.Handler(),
	})
	if err != nil {
		return fmt.Errorf("create daemon manager: %w", err)
	}
	for _, h := range c.hooks {
		mgr.RegisterShutdownHook(h.name, h.fn)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go invalidateOnSignal(ctx, hup, c.guide, logger)

	go func() {
		select {
		case <-mgr.Ready():
		case <-ctx.Done():
			return
		}
		if ro.ready != nil {
			ro.ready(mgr.Addr())
		}
		if ro.warm {
			start := time.Now()
			doc := c.guide.Document(ctx, "")
			logger.Info().
				Str("event", "guide.warmed").
				Int("bytes", len(doc)).
				Dur("took", time.Since(start)).
				Msg("default guide built at startup")
		}
	}()

	return mgr.Start(ctx)
}

type invalidator interface{ Invalidate() }

// invalidateOnSignal drops the cached default guide on every signal until
// ctx is done, so the next request rebuilds it.
func invalidateOnSignal(ctx context.Context, sig <-chan os.Signal, g invalidator, logger zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-sig:
			g.Invalidate()
			logger.Info().
				Str("event", "guide.invalidated").
				Str("signal", s.String()).
				Msg("cached guide dropped")
		}
	}
}
