// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Guide build attributes
	GuidePlaylistURLKey = "guide.playlist_url"
	GuideChannelsKey    = "guide.channels"
	GuideResolvedKey    = "guide.resolved"
	GuideProgrammesKey  = "guide.programmes"
	GuideDroppedKey     = "guide.rows_dropped"
	GuideConcurrencyKey = "guide.concurrency"

	// Per-channel attributes
	ChannelNameKey = "channel.name"
	StationURLKey  = "station.url"

	// Cache attributes
	CacheKeyKey     = "cache.key"
	CacheOutcomeKey = "cache.outcome"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// BuildAttributes describes a finished guide build.
func BuildAttributes(channels, resolved, programmes, dropped int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(GuideChannelsKey, channels),
		attribute.Int(GuideResolvedKey, resolved),
		attribute.Int(GuideProgrammesKey, programmes),
		attribute.Int(GuideDroppedKey, dropped),
	}
}

// ChannelAttributes describes one channel lookup. Empty values are skipped.
func ChannelAttributes(channel, stationURL string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if channel != "" {
		attrs = append(attrs, attribute.String(ChannelNameKey, channel))
	}
	if stationURL != "" {
		attrs = append(attrs, attribute.String(StationURLKey, stationURL))
	}
	return attrs
}

// CacheAttributes describes a document cache lookup.
func CacheAttributes(key, outcome string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(CacheKeyKey, key),
		attribute.String(CacheOutcomeKey, outcome),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
