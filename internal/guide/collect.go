// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package guide

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ManuGH/m3u2xmltv/internal/epg"
	xglog "github.com/ManuGH/m3u2xmltv/internal/log"
	"github.com/ManuGH/m3u2xmltv/internal/metrics"
	"github.com/ManuGH/m3u2xmltv/internal/playlist"
	"github.com/ManuGH/m3u2xmltv/internal/telemetry"
	"github.com/ManuGH/m3u2xmltv/internal/tvpassport"
)

// collect reads the schedule of every resolved channel, one station at a
// time in playlist order, and normalizes the rows. A failing station
// contributes nothing. Only cancellation of ctx stops the loop.
func (s *Service) collect(ctx context.Context, items []playlist.Item, resolved Resolved, now time.Time) ([]epg.Listing, Stats, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "guide.fetch")
	defer span.End()

	var (
		listings []epg.Listing
		stats    Stats
	)
	for _, it := range items {
		name := it.DisplayName()
		stationURL, ok := resolved[name]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, stats, fmt.Errorf("fetch schedules: %w", err)
		}

		sched, err := s.fetchOne(ctx, name, stationURL)
		if err != nil {
			metrics.IncScheduleFetch(metrics.OutcomeError)
			logger := xglog.WithContext(ctx, s.logger)
			logger.Debug().Err(err).
				Str(xglog.FieldEvent, "guide.schedule.failed").
				Str(xglog.FieldChannel, name).
				Str(xglog.FieldStationURL, stationURL).
				Msg("schedule fetch failed")
			continue
		}

		id := epg.ChannelID(name)
		before := len(listings)
		for _, row := range sched.Rows {
			l, reason, ok := normalizeRow(row, id, name, now, s.opts.ListingsZone)
			if !ok {
				stats.RowsDropped++
				metrics.IncRowsDropped(reason)
				continue
			}
			listings = append(listings, l)
		}
		if added := len(listings) - before; added > 0 {
			stats.WithProgrammes++
			metrics.IncScheduleFetch(metrics.OutcomeSuccess)
		} else {
			metrics.IncScheduleFetch(metrics.OutcomeEmpty)
		}
	}

	span.SetAttributes(attribute.Int(telemetry.GuideProgrammesKey, len(listings)))
	metrics.ObserveStage("fetch", time.Since(start))
	logger := xglog.WithContext(ctx, s.logger)
	logger.Info().
		Str(xglog.FieldEvent, "guide.fetch.done").
		Str(xglog.FieldStage, "fetch").
		Int("stations", len(resolved)).
		Int(xglog.FieldProgrammes, len(listings)).
		Int("rows_dropped", stats.RowsDropped).
		Int64(xglog.FieldDurationMS, time.Since(start).Milliseconds()).
		Msg("schedules collected")
	return listings, stats, nil
}

// fetchOne reads one station page under the schedule timeout, turning a
// panic in the source into an error.
func (s *Service) fetchOne(ctx context.Context, name, stationURL string) (sched tvpassport.Schedule, err error) {
	ctx, span := s.tracer.Start(ctx, "guide.fetch.station")
	span.SetAttributes(telemetry.ChannelAttributes(name, stationURL)...)
	defer func() { telemetry.EndSpan(span, err) }()
	defer func() {
		if r := recover(); r != nil {
			sched, err = tvpassport.Schedule{}, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.opts.ScheduleTimeout)
	defer cancel()
	return s.deps.Schedule.FetchSchedule(ctx, stationURL, s.opts.ScheduleDays)
}

// normalizeRow turns a raw row into a listing. reason names why a row was
// dropped when ok is false.
func normalizeRow(row tvpassport.Row, channelID, channelName string, now time.Time, loc *time.Location) (l epg.Listing, reason string, ok bool) {
	if row.Title == "" {
		return epg.Listing{}, metrics.DropMissingTitle, false
	}
	start, stop, ok := epg.ParseTimeRange(row.TimeRange, now, loc)
	if !ok {
		return epg.Listing{}, metrics.DropBadTime, false
	}
	return epg.Listing{
		ChannelID:   channelID,
		ChannelName: channelName,
		Start:       start,
		Stop:        stop,
		Title:       row.Title,
		Desc:        row.Desc,
		Category:    row.Category,
	}, "", true
}
