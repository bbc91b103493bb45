// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the guide document and the rewritten playlist over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/m3u2xmltv/internal/api/middleware"
	"github.com/ManuGH/m3u2xmltv/internal/playlist"
)

// Guide is the subset of guide.Service the handlers need.
type Guide interface {
	Document(ctx context.Context, playlistURL string) []byte
	Channels(ctx context.Context, playlistURL string) ([]playlist.Item, error)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Config tunes the server.
type Config struct {
	Version string
	Stack   middleware.StackConfig
}

// Server wires the handlers onto a chi router.
type Server struct {
	guide  Guide
	cfg    Config
	checks map[string]HealthCheck
	router *chi.Mux
}

// Option configures a Server.
type Option func(*Server)

// WithHealthCheck adds a named dependency check to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) {
		if check != nil {
			s.checks[name] = check
		}
	}
}

// New builds the server and its routes.
func New(g Guide, cfg Config, opts ...Option) *Server {
	s := &Server{
		guide:  g,
		cfg:    cfg,
		checks: map[string]HealthCheck{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *chi.Mux {
	r := middleware.NewRouter(s.cfg.Stack)

	r.Get("/", s.handleXMLTV)
	r.Get("/xmltv.xml", s.handleXMLTV)
	r.Head("/", s.handleXMLTV)
	r.Head("/xmltv.xml", s.handleXMLTV)
	r.Get("/playlist.m3u", s.handlePlaylist)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
