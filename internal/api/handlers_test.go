// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/m3u2xmltv/internal/epg"
	"github.com/ManuGH/m3u2xmltv/internal/playlist"
)

type fakeGuide struct {
	mu       sync.Mutex
	doc      []byte
	items    []playlist.Item
	err      error
	lastURLs []string
}

func (f *fakeGuide) Document(_ context.Context, playlistURL string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastURLs = append(f.lastURLs, playlistURL)
	if f.doc == nil {
		return epg.EmptyDocument()
	}
	return f.doc
}

func (f *fakeGuide) Channels(_ context.Context, playlistURL string) ([]playlist.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastURLs = append(f.lastURLs, playlistURL)
	return f.items, f.err
}

func (f *fakeGuide) urls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lastURLs...)
}

func serve(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestXMLTV_ServesDocument(t *testing.T) {
	doc := []byte(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<tv></tv>\n")
	g := &fakeGuide{doc: doc}
	s := New(g, Config{})

	for _, path := range []string{"/", "/xmltv.xml"} {
		t.Run(path, func(t *testing.T) {
			rec := serve(t, s, http.MethodGet, path)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/xml; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))
			assert.Equal(t, doc, rec.Body.Bytes())
		})
	}
	assert.Equal(t, []string{"", ""}, g.urls())
}

func TestXMLTV_PassesOverride(t *testing.T) {
	g := &fakeGuide{}
	s := New(g, Config{})

	rec := serve(t, s, http.MethodGet, "/xmltv.xml?m3u=https%3A%2F%2Fexample.com%2Flist.m3u")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"https://example.com/list.m3u"}, g.urls())
}

func TestXMLTV_InvalidOverrideServesEmptyDocument(t *testing.T) {
	g := &fakeGuide{doc: []byte("<tv>full</tv>")}
	s := New(g, Config{})

	for _, q := range []string{"file:///etc/passwd", "not a url", "http://"} {
		rec := serve(t, s, http.MethodGet, "/?m3u="+url.QueryEscape(q))
		assert.Equal(t, http.StatusOK, rec.Code, q)
		assert.Equal(t, epg.EmptyDocument(), rec.Body.Bytes(), q)
	}
	assert.Empty(t, g.urls())
}

func TestXMLTV_Head(t *testing.T) {
	s := New(&fakeGuide{}, Config{})
	rec := serve(t, s, http.MethodHead, "/xmltv.xml")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
	assert.NotEmpty(t, rec.Header().Get("Content-Length"))
}

func TestPlaylist_RewritesTvgID(t *testing.T) {
	g := &fakeGuide{items: []playlist.Item{
		{Name: "CNN HD", TvgName: "CNN", TvgID: epg.ChannelID("CNN"), URL: "http://stream/cnn"},
	}}
	s := New(g, Config{})

	rec := serve(t, s, http.MethodGet, "/playlist.m3u")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/x-mpegurl; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		"#EXTM3U\n#EXTINF:-1 tvg-id=\"Q05O\" tvg-name=\"CNN\",CNN HD\nhttp://stream/cnn\n",
		rec.Body.String())
}

func TestPlaylist_Errors(t *testing.T) {
	s := New(&fakeGuide{err: errors.New("upstream down")}, Config{})
	assert.Equal(t, http.StatusBadGateway, serve(t, s, http.MethodGet, "/playlist.m3u").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, s, http.MethodGet, "/playlist.m3u?m3u=ftp://x/y").Code)
}

func TestHealth(t *testing.T) {
	t.Run("ok without checks", func(t *testing.T) {
		s := New(&fakeGuide{}, Config{Version: "v1.0.0"})
		rec := serve(t, s, http.MethodGet, "/healthz")
		require.Equal(t, http.StatusOK, rec.Code)

		var body healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "v1.0.0", body.Version)
		assert.Empty(t, body.Checks)
	})

	t.Run("degraded when a check fails", func(t *testing.T) {
		s := New(&fakeGuide{}, Config{},
			WithHealthCheck("cache", func(context.Context) error { return errors.New("redis down") }),
			WithHealthCheck("other", func(context.Context) error { return nil }),
		)
		rec := serve(t, s, http.MethodGet, "/healthz")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, map[string]string{"cache": "redis down", "other": "ok"}, body.Checks)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := New(&fakeGuide{}, Config{})
	rec := serve(t, s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestUnknownRoute(t *testing.T) {
	s := New(&fakeGuide{}, Config{})
	assert.Equal(t, http.StatusNotFound, serve(t, s, http.MethodGet, "/nope").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(t, s, http.MethodPost, "/xmltv.xml").Code)
}
