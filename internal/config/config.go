// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for m3u2xmltv.
//
// Precedence is environment over file over defaults. The file is optional YAML
// parsed strictly, environment keys carry the M3U2XMLTV_ prefix.
package config

import (
	"time"

	"github.com/ManuGH/m3u2xmltv/internal/guide"
	"github.com/ManuGH/m3u2xmltv/internal/tvpassport"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Defaults that are not owned by a domain package.
const (
	DefaultListenAddr        = ":8080"
	DefaultLogLevel          = "info"
	DefaultListingsTimezone  = "America/Chicago"
	DefaultSourceRate        = 4.0
	DefaultSourceBurst       = 4
	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = time.Minute
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 5 * time.Minute
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultRedisKeyPrefix    = "m3u2xmltv:"
	DefaultSamplingRate      = 1.0
)

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	Version    string `yaml:"-"`
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`

	Playlist  PlaylistConfig  `yaml:"playlist"`
	Source    SourceConfig    `yaml:"source"`
	Guide     GuideConfig     `yaml:"guide"`
	Cache     CacheConfig     `yaml:"cache"`
	Matcher   MatcherConfig   `yaml:"matcher"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// PlaylistConfig controls how the M3U playlist is fetched.
type PlaylistConfig struct {
	DefaultURL string        `yaml:"default_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// SourceConfig controls the TVPassport listings source.
type SourceConfig struct {
	BaseURL          string        `yaml:"base_url"`
	SearchTimeout    time.Duration `yaml:"search_timeout"`
	ScheduleTimeout  time.Duration `yaml:"schedule_timeout"`
	RatePerSecond    float64       `yaml:"rate_per_second"` // 0 disables pacing
	Burst            int           `yaml:"burst"`
	ScheduleDays     int           `yaml:"schedule_days"`
	ListingsTimezone string        `yaml:"listings_timezone"`
}

// GuideConfig controls the build pipeline.
type GuideConfig struct {
	// ResolveConcurrency bounds parallel station searches; 0 means unbounded.
	ResolveConcurrency int `yaml:"resolve_concurrency"`
}

// CacheConfig selects the document cache backend.
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis connection settings for the redis backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// MatcherConfig overrides the built-in matching tables.
type MatcherConfig struct {
	TablesFile string  `yaml:"tables_file"`
	Threshold  float64 `yaml:"threshold"` // 0 keeps the tables' threshold
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	Environment  string  `yaml:"environment"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// HTTPConfig controls the listener and per-client rate limiting.
type HTTPConfig struct {
	RateLimitRequests int           `yaml:"rate_limit_requests"` // 0 disables the limit
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// Defaults returns the configuration used when neither file nor environment set a value.
func Defaults() AppConfig {
	g := guide.DefaultOptions()
	return AppConfig{
		ListenAddr: DefaultListenAddr,
		LogLevel:   DefaultLogLevel,
		Playlist: PlaylistConfig{
			DefaultURL: g.DefaultPlaylistURL,
			Timeout:    g.PlaylistTimeout,
		},
		Source: SourceConfig{
			BaseURL:          tvpassport.DefaultBaseURL,
			SearchTimeout:    g.SearchTimeout,
			ScheduleTimeout:  g.ScheduleTimeout,
			RatePerSecond:    DefaultSourceRate,
			Burst:            DefaultSourceBurst,
			ScheduleDays:     g.ScheduleDays,
			ListingsTimezone: DefaultListingsTimezone,
		},
		Guide: GuideConfig{ResolveConcurrency: g.ResolveConcurrency},
		Cache: CacheConfig{
			Backend: CacheBackendMemory,
			TTL:     g.CacheTTL,
			Redis:   RedisConfig{KeyPrefix: DefaultRedisKeyPrefix},
		},
		Telemetry: TelemetryConfig{
			ServiceName:  "m3u2xmltv",
			Environment:  "production",
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: DefaultSamplingRate,
		},
		HTTP: HTTPConfig{
			RateLimitRequests: DefaultRateLimitRequests,
			RateLimitWindow:   DefaultRateLimitWindow,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			ShutdownTimeout:   DefaultShutdownTimeout,
		},
	}
}

// ListingsLocation resolves the listings timezone, falling back to UTC on error.
func (c AppConfig) ListingsLocation() *time.Location {
	loc, err := time.LoadLocation(c.Source.ListingsTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GuideOptions maps the configuration onto the pipeline options.
func (c AppConfig) GuideOptions() guide.Options {
	return guide.Options{
		DefaultPlaylistURL: c.Playlist.DefaultURL,
		PlaylistTimeout:    c.Playlist.Timeout,
		SearchTimeout:      c.Source.SearchTimeout,
		ScheduleTimeout:    c.Source.ScheduleTimeout,
		ResolveConcurrency: c.Guide.ResolveConcurrency,
		ScheduleDays:       c.Source.ScheduleDays,
		CacheTTL:           c.Cache.TTL,
		ListingsZone:       c.ListingsLocation(),
	}
}
