// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ratelimit paces outbound requests toward the schedule source and
// derives client keys for inbound per-IP limiting.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var pacerWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "m3u2xmltv",
	Name:      "source_pacer_wait_seconds",
	Help:      "Time outbound source requests spent waiting for the pacer",
	Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
})

// Pacer spaces outbound requests. A nil or disabled Pacer never blocks.
type Pacer struct {
	lim *rate.Limiter
}

// NewPacer allows perSecond requests with the given burst. perSecond <= 0
// disables pacing; a burst below 1 is raised to 1.
func NewPacer(perSecond float64, burst int) *Pacer {
	if perSecond <= 0 {
		return &Pacer{}
	}
	if burst < 1 {
		burst = 1
	}
	return &Pacer{lim: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Enabled reports whether Wait can block.
func (p *Pacer) Enabled() bool {
	return p != nil && p.lim != nil
}

// Wait blocks until the next request may go out or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	start := time.Now()
	if err := p.lim.Wait(ctx); err != nil {
		return fmt.Errorf("pacer wait: %w", err)
	}
	pacerWaitSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// ClientIP extracts the caller address from X-Forwarded-For, X-Real-IP or
// RemoteAddr, in that order.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// KeyByClientIP is an httprate key function built on ClientIP.
func KeyByClientIP(r *http.Request) (string, error) {
	return ClientIP(r), nil
}
