// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"strings"

	"github.com/ManuGH/m3u2xmltv/internal/validate"
	"github.com/rs/zerolog"
)

var httpSchemes = []string{"http", "https"}

// Validate validates an AppConfig using the centralized validation package.
// The returned error matches validate.ErrInvalid.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("ListenAddr", cfg.ListenAddr)
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil || cfg.LogLevel == "" {
		v.AddError("LogLevel", "unknown log level", cfg.LogLevel)
	}

	v.URL("Playlist.DefaultURL", cfg.Playlist.DefaultURL, httpSchemes)
	v.PositiveDuration("Playlist.Timeout", cfg.Playlist.Timeout)

	v.URL("Source.BaseURL", cfg.Source.BaseURL, httpSchemes)
	v.PositiveDuration("Source.SearchTimeout", cfg.Source.SearchTimeout)
	v.PositiveDuration("Source.ScheduleTimeout", cfg.Source.ScheduleTimeout)
	if cfg.Source.RatePerSecond < 0 {
		v.AddError("Source.RatePerSecond", "rate cannot be negative", cfg.Source.RatePerSecond)
	}
	v.NonNegative("Source.Burst", cfg.Source.Burst)
	v.Range("Source.ScheduleDays", cfg.Source.ScheduleDays, 1, 14)
	v.Timezone("Source.ListingsTimezone", cfg.Source.ListingsTimezone)

	v.Range("Guide.ResolveConcurrency", cfg.Guide.ResolveConcurrency, 0, 256)

	v.OneOf("Cache.Backend", cfg.Cache.Backend, []string{CacheBackendMemory, CacheBackendRedis})
	v.PositiveDuration("Cache.TTL", cfg.Cache.TTL)
	if cfg.Cache.Backend == CacheBackendRedis {
		v.NotEmpty("Cache.Redis.Addr", cfg.Cache.Redis.Addr)
		v.Range("Cache.Redis.DB", cfg.Cache.Redis.DB, 0, 15)
	}

	v.File("Matcher.TablesFile", cfg.Matcher.TablesFile)
	v.FloatRange("Matcher.Threshold", cfg.Matcher.Threshold, 0, 1)

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("Telemetry.SamplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	v.NonNegative("HTTP.RateLimitRequests", cfg.HTTP.RateLimitRequests)
	if cfg.HTTP.RateLimitRequests > 0 {
		v.PositiveDuration("HTTP.RateLimitWindow", cfg.HTTP.RateLimitWindow)
	}
	v.PositiveDuration("HTTP.ShutdownTimeout", cfg.HTTP.ShutdownTimeout)

	return v.Err()
}
