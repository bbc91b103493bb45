// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package guide

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/m3u2xmltv/internal/cache"
	"github.com/ManuGH/m3u2xmltv/internal/epg"
	"github.com/ManuGH/m3u2xmltv/internal/playlist"
	"github.com/ManuGH/m3u2xmltv/internal/tvpassport"
)

// PlaylistSource returns the raw text of a playlist.
type PlaylistSource interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ScheduleSource finds stations and reads their listings.
type ScheduleSource interface {
	SearchStations(ctx context.Context, name string) ([]tvpassport.Station, error)
	FetchSchedule(ctx context.Context, stationURL string, days int) (tvpassport.Schedule, error)
}

// Resolver picks the station for a channel name out of candidate names.
type Resolver interface {
	Resolve(name string, candidates []string) (string, bool)
}

// Deps holds the collaborators of a Service. Nil Matcher, Cache, Clock and
// Logger get defaults; Playlist and Schedule are required.
type Deps struct {
	Playlist PlaylistSource
	Schedule ScheduleSource
	Matcher  Resolver
	Cache    cache.Cache[[]byte]
	Clock    func() time.Time
	Logger   *zerolog.Logger
}

// Options tunes a Service.
type Options struct {
	DefaultPlaylistURL string

	PlaylistTimeout time.Duration
	SearchTimeout   time.Duration
	ScheduleTimeout time.Duration

	// ResolveConcurrency caps parallel station searches; 0 is unbounded.
	ResolveConcurrency int
	ScheduleDays       int

	CacheTTL time.Duration

	// ListingsZone anchors the wall-clock times printed on station pages.
	ListingsZone *time.Location
}

const (
	DefaultPlaylistURL        = "https://cwdiptvb.github.io/tv_channles.m3u"
	DefaultPlaylistTimeout    = 15 * time.Second
	DefaultSearchTimeout      = 10 * time.Second
	DefaultScheduleTimeout    = 20 * time.Second
	DefaultResolveConcurrency = 16
	DefaultScheduleDays       = 1
	DefaultCacheTTL           = 10 * time.Minute
)

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		DefaultPlaylistURL: DefaultPlaylistURL,
		PlaylistTimeout:    DefaultPlaylistTimeout,
		SearchTimeout:      DefaultSearchTimeout,
		ScheduleTimeout:    DefaultScheduleTimeout,
		ResolveConcurrency: DefaultResolveConcurrency,
		ScheduleDays:       DefaultScheduleDays,
		CacheTTL:           DefaultCacheTTL,
		ListingsZone:       epg.OutputZone(),
	}
}

// Resolved maps a channel display name to its station URL. Only confident
// matches are present.
type Resolved map[string]string

// Stats summarizes one build.
type Stats struct {
	RunID          string
	Channels       int
	Resolved       int
	WithProgrammes int
	Programmes     int
	RowsDropped    int
	Duration       time.Duration
}

// Result is the output of one pipeline run.
type Result struct {
	Channels []epg.ChannelInfo
	Listings []epg.Listing
	// Items is the deduplicated playlist with tvg-id set to the guide
	// channel id.
	Items    []playlist.Item
	Resolved Resolved
	Stats    Stats
}
