// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/m3u2xmltv/internal/epg"
	"github.com/ManuGH/m3u2xmltv/internal/log"
	"github.com/ManuGH/m3u2xmltv/internal/playlist"
)

const (
	contentTypeXML  = "application/xml; charset=utf-8"
	contentTypeM3U  = "audio/x-mpegurl; charset=utf-8"
	contentTypeJSON = "application/json"
	cacheControl    = "public, max-age=300"

	healthTimeout = 2 * time.Second
)

// playlistOverride returns the ?m3u= value. ok is false when it is present
// but not an absolute http(s) URL.
func playlistOverride(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("m3u"))
	if raw == "" {
		return "", true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	return raw, true
}

// handleXMLTV always answers 200; failures surface as an empty guide.
func (s *Server) handleXMLTV(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	var doc []byte
	override, ok := playlistOverride(r)
	if ok {
		doc = s.guide.Document(r.Context(), override)
	} else {
		logger.Warn().
			Str(log.FieldEvent, "xmltv.bad_override").
			Str("m3u", r.URL.Query().Get("m3u")).
			Msg("ignoring invalid playlist override")
		doc = epg.EmptyDocument()
	}

	w.Header().Set("Content-Type", contentTypeXML)
	w.Header().Set("Cache-Control", cacheControl)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(doc); err != nil {
		logger.Debug().Err(err).Str(log.FieldEvent, "xmltv.write_failed").Msg("client went away")
	}
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	override, ok := playlistOverride(r)
	if !ok {
		http.Error(w, "invalid m3u parameter", http.StatusBadRequest)
		return
	}

	items, err := s.guide.Channels(r.Context(), override)
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "playlist.fetch_failed").Msg("playlist unavailable")
		http.Error(w, "playlist unavailable", http.StatusBadGateway)
		return
	}

	var buf bytes.Buffer
	if err := playlist.WriteM3U(&buf, items); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "playlist.render_failed").Msg("failed to render playlist")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeM3U)
	w.Header().Set("Cache-Control", cacheControl)
	_, _ = w.Write(buf.Bytes())
}

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Version: s.cfg.Version}
	code := http.StatusOK

	if len(s.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp.Checks = make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
