// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package guide

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	xglog "github.com/ManuGH/m3u2xmltv/internal/log"
	"github.com/ManuGH/m3u2xmltv/internal/metrics"
	"github.com/ManuGH/m3u2xmltv/internal/playlist"
	"github.com/ManuGH/m3u2xmltv/internal/telemetry"
)

// resolve searches a station for every channel concurrently. Every task
// returns nil so no failure cancels or hides a sibling; the result slot per
// index keeps the outcome independent of scheduling.
func (s *Service) resolve(ctx context.Context, items []playlist.Item) Resolved {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "guide.resolve", trace.WithAttributes(
		attribute.Int(telemetry.GuideChannelsKey, len(items)),
		attribute.Int(telemetry.GuideConcurrencyKey, s.opts.ResolveConcurrency),
	))
	defer span.End()

	urls := make([]string, len(items))
	var g errgroup.Group
	if s.opts.ResolveConcurrency > 0 {
		g.SetLimit(s.opts.ResolveConcurrency)
	}
	for i, it := range items {
		g.Go(func() error {
			urls[i] = s.resolveOne(ctx, it.DisplayName())
			return nil
		})
	}
	_ = g.Wait()

	resolved := make(Resolved, len(items))
	for i, it := range items {
		if urls[i] != "" {
			resolved[it.DisplayName()] = urls[i]
		}
	}

	span.SetAttributes(attribute.Int(telemetry.GuideResolvedKey, len(resolved)))
	metrics.ObserveStage("resolve", time.Since(start))
	logger := xglog.WithContext(ctx, s.logger)
	logger.Info().
		Str(xglog.FieldEvent, "guide.resolve.done").
		Str(xglog.FieldStage, "resolve").
		Int("channels", len(items)).
		Int("resolved", len(resolved)).
		Int64(xglog.FieldDurationMS, time.Since(start).Milliseconds()).
		Msg("stations resolved")
	return resolved
}

// resolveOne returns the station URL for name, or "" when the search fails,
// finds nothing, no candidate is close enough, or anything panics.
func (s *Service) resolveOne(ctx context.Context, name string) (stationURL string) {
	logger := xglog.WithContext(ctx, s.logger).With().Str(xglog.FieldChannel, name).Logger()
	defer func() {
		if r := recover(); r != nil {
			metrics.IncResolution(metrics.OutcomeError)
			logger.Warn().Str(xglog.FieldEvent, "guide.resolve.panic").Interface("panic", r).Msg("station search panicked")
			stationURL = ""
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	stations, err := s.deps.Schedule.SearchStations(ctx, name)
	if err != nil {
		metrics.IncResolution(metrics.OutcomeError)
		logger.Debug().Err(err).Str(xglog.FieldEvent, "guide.resolve.error").Msg("station search failed")
		return ""
	}
	if len(stations) == 0 {
		metrics.IncResolution(metrics.OutcomeEmpty)
		logger.Debug().Str(xglog.FieldEvent, "guide.resolve.empty").Msg("no stations found")
		return ""
	}

	names := make([]string, len(stations))
	for i, st := range stations {
		names[i] = st.Name
	}
	chosen, ok := s.deps.Matcher.Resolve(name, names)
	if !ok {
		metrics.IncResolution(metrics.OutcomeNoMatch)
		logger.Debug().
			Str(xglog.FieldEvent, "guide.resolve.miss").
			Int(xglog.FieldCandidates, len(stations)).
			Msg("no confident station match")
		return ""
	}
	for _, st := range stations {
		if st.Name == chosen {
			metrics.IncResolution(metrics.OutcomeMatched)
			logger.Debug().
				Str(xglog.FieldEvent, "guide.resolve.hit").
				Str(xglog.FieldStation, st.Name).
				Str(xglog.FieldStationURL, st.URL).
				Msg("station matched")
			return st.URL
		}
	}
	metrics.IncResolution(metrics.OutcomeNoMatch)
	return ""
}
