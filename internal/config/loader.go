// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment keys, without EnvPrefix.
const (
	EnvListenAddr         = "LISTEN_ADDR"
	EnvLogLevel           = "LOG_LEVEL"
	EnvPlaylistURL        = "PLAYLIST_URL"
	EnvPlaylistTimeout    = "PLAYLIST_TIMEOUT"
	EnvSourceBaseURL      = "SOURCE_BASE_URL"
	EnvSearchTimeout      = "SEARCH_TIMEOUT"
	EnvScheduleTimeout    = "SCHEDULE_TIMEOUT"
	EnvSourceRate         = "SOURCE_RATE"
	EnvSourceBurst        = "SOURCE_BURST"
	EnvScheduleDays       = "SCHEDULE_DAYS"
	EnvListingsTimezone   = "LISTINGS_TZ"
	EnvResolveConcurrency = "RESOLVE_CONCURRENCY"
	EnvCacheBackend       = "CACHE_BACKEND"
	EnvCacheTTL           = "CACHE_TTL"
	EnvRedisAddr          = "REDIS_ADDR"
	EnvRedisPassword      = "REDIS_PASSWORD"
	EnvRedisDB            = "REDIS_DB"
	EnvRedisKeyPrefix     = "REDIS_KEY_PREFIX"
	EnvMatcherTables      = "MATCHER_TABLES"
	EnvMatcherThreshold   = "MATCHER_THRESHOLD"
	EnvTelemetryEnabled   = "OTEL_ENABLED"
	EnvTelemetryExporter  = "OTEL_EXPORTER"
	EnvTelemetryEndpoint  = "OTEL_ENDPOINT"
	EnvTelemetrySampling  = "OTEL_SAMPLING_RATE"
	EnvTelemetryEnv       = "OTEL_ENVIRONMENT"
	EnvRateLimitRequests  = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow    = "RATE_LIMIT_WINDOW"
	EnvShutdownTimeout    = "SHUTDOWN_TIMEOUT"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // full keys read during Load
}

// NewLoader creates a new configuration loader. An empty configPath skips the file layer.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) key(name string) string {
	k := EnvPrefix + name
	l.ConsumedEnvKeys[k] = struct{}{}
	return k
}

func (l *Loader) envString(name, defaultVal string) string {
	return ParseString(l.key(name), defaultVal)
}

func (l *Loader) envBool(name string, defaultVal bool) bool {
	return ParseBool(l.key(name), defaultVal)
}

func (l *Loader) envInt(name string, defaultVal int) int {
	return ParseInt(l.key(name), defaultVal)
}

func (l *Loader) envDuration(name string, defaultVal time.Duration) time.Duration {
	return ParseDuration(l.key(name), defaultVal)
}

func (l *Loader) envFloat(name string, defaultVal float64) float64 {
	return ParseFloat(l.key(name), defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// The file is parsed strictly, then env is applied, then the result is validated.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	cfg.Telemetry.Exporter = strings.ToLower(strings.TrimSpace(cfg.Telemetry.Exporter))

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg. Unknown fields are fatal.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrMultipleDocuments
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.ListenAddr = l.envString(EnvListenAddr, cfg.ListenAddr)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)

	cfg.Playlist.DefaultURL = l.envString(EnvPlaylistURL, cfg.Playlist.DefaultURL)
	cfg.Playlist.Timeout = l.envDuration(EnvPlaylistTimeout, cfg.Playlist.Timeout)

	cfg.Source.BaseURL = l.envString(EnvSourceBaseURL, cfg.Source.BaseURL)
	cfg.Source.SearchTimeout = l.envDuration(EnvSearchTimeout, cfg.Source.SearchTimeout)
	cfg.Source.ScheduleTimeout = l.envDuration(EnvScheduleTimeout, cfg.Source.ScheduleTimeout)
	cfg.Source.RatePerSecond = l.envFloat(EnvSourceRate, cfg.Source.RatePerSecond)
	cfg.Source.Burst = l.envInt(EnvSourceBurst, cfg.Source.Burst)
	cfg.Source.ScheduleDays = l.envInt(EnvScheduleDays, cfg.Source.ScheduleDays)
	cfg.Source.ListingsTimezone = l.envString(EnvListingsTimezone, cfg.Source.ListingsTimezone)

	cfg.Guide.ResolveConcurrency = l.envInt(EnvResolveConcurrency, cfg.Guide.ResolveConcurrency)

	cfg.Cache.Backend = l.envString(EnvCacheBackend, cfg.Cache.Backend)
	cfg.Cache.TTL = l.envDuration(EnvCacheTTL, cfg.Cache.TTL)
	cfg.Cache.Redis.Addr = l.envString(EnvRedisAddr, cfg.Cache.Redis.Addr)
	cfg.Cache.Redis.Password = l.envString(EnvRedisPassword, cfg.Cache.Redis.Password)
	cfg.Cache.Redis.DB = l.envInt(EnvRedisDB, cfg.Cache.Redis.DB)
	cfg.Cache.Redis.KeyPrefix = l.envString(EnvRedisKeyPrefix, cfg.Cache.Redis.KeyPrefix)

	cfg.Matcher.TablesFile = l.envString(EnvMatcherTables, cfg.Matcher.TablesFile)
	cfg.Matcher.Threshold = l.envFloat(EnvMatcherThreshold, cfg.Matcher.Threshold)

	cfg.Telemetry.Enabled = l.envBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvTelemetryExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvTelemetryEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvTelemetrySampling, cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = l.envString(EnvTelemetryEnv, cfg.Telemetry.Environment)

	cfg.HTTP.RateLimitRequests = l.envInt(EnvRateLimitRequests, cfg.HTTP.RateLimitRequests)
	cfg.HTTP.RateLimitWindow = l.envDuration(EnvRateLimitWindow, cfg.HTTP.RateLimitWindow)
	cfg.HTTP.ShutdownTimeout = l.envDuration(EnvShutdownTimeout, cfg.HTTP.ShutdownTimeout)
}
