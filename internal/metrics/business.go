// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus metrics of the guide pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared with callers.
const (
	OutcomeMatched  = "matched"
	OutcomeNoMatch  = "no_match"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"

	DropMissingTitle = "missing_title"
	DropBadTime      = "bad_time"
)

var (
	// Pipeline metrics
	channelsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "m3u2xmltv_channels_total",
		Help: "Unique playlist channels in the last build",
	})

	resolutionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m3u2xmltv_station_resolution_total",
		Help: "Station resolution attempts by outcome",
	}, []string{"outcome"}) // outcome=matched|no_match|empty|error

	scheduleFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m3u2xmltv_schedule_fetch_total",
		Help: "Schedule fetches by outcome",
	}, []string{"outcome"}) // outcome=success|empty|error

	rowsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m3u2xmltv_rows_dropped_total",
		Help: "Raw listing rows dropped during normalization",
	}, []string{"reason"}) // reason=missing_title|bad_time

	programmesCollected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "m3u2xmltv_programmes_collected",
		Help: "Programmes written in the last build",
	})

	channelsWithData = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "m3u2xmltv_channels_with_data",
		Help: "Channels that received at least one programme in the last build",
	})

	buildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "m3u2xmltv_build_stage_duration_seconds",
		Help:    "Duration of guide build stages",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
	}, []string{"stage"}) // stage=playlist|resolve|fetch|render|total

	documentsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m3u2xmltv_documents_total",
		Help: "Guide documents returned by outcome",
	}, []string{"outcome"}) // outcome=success|fallback

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m3u2xmltv_cache_lookups_total",
		Help: "Document cache lookups by result",
	}, []string{"result"}) // result=hit|loaded|shared

	// Source metrics
	sourceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m3u2xmltv_source_requests_total",
		Help: "Requests made to the schedule source",
	}, []string{"op", "status"}) // op=search|schedule status=HTTP code or error

	sourceRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "m3u2xmltv_source_request_duration_seconds",
		Help:    "Latency of schedule source requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

// SetChannels records the unique channel count of a build.
func SetChannels(n int) { channelsTotal.Set(float64(n)) }

// IncResolution counts one resolution outcome.
func IncResolution(outcome string) { resolutionTotal.WithLabelValues(outcome).Inc() }

// IncScheduleFetch counts one schedule fetch outcome.
func IncScheduleFetch(outcome string) { scheduleFetchTotal.WithLabelValues(outcome).Inc() }

// IncRowsDropped counts rows dropped for reason.
func IncRowsDropped(reason string) { rowsDroppedTotal.WithLabelValues(reason).Inc() }

// RecordBuild sets the per-build programme gauges.
func RecordBuild(programmes, channelsWithProgrammes int) {
	programmesCollected.Set(float64(programmes))
	channelsWithData.Set(float64(channelsWithProgrammes))
}

// ObserveStage records how long a build stage took.
func ObserveStage(stage string, d time.Duration) {
	buildDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// IncDocument counts a served document.
func IncDocument(outcome string) { documentsServed.WithLabelValues(outcome).Inc() }

// IncCacheLookup counts a document cache lookup.
func IncCacheLookup(result string) { cacheLookups.WithLabelValues(result).Inc() }

// ObserveSourceRequest records a schedule source request. status is the
// HTTP status code or "error" for transport failures.
func ObserveSourceRequest(op, status string, d time.Duration) {
	sourceRequests.WithLabelValues(op, status).Inc()
	sourceRequestDuration.WithLabelValues(op).Observe(d.Seconds())
}
