// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/m3u2xmltv/internal/epg"
	"github.com/ManuGH/m3u2xmltv/internal/guide"
	"github.com/ManuGH/m3u2xmltv/internal/platform/httpx"
	"github.com/ManuGH/m3u2xmltv/internal/playlist"
	"github.com/ManuGH/m3u2xmltv/internal/tvpassport"
)

const upstreamPlaylist = `#EXTM3U
#EXTINF:-1 tvg-name="CNN" tvg-logo="http://logo/cnn.png",CNN HD
http://stream/cnn
#EXTINF:-1,Local Access 99
http://stream/local
`

const upstreamSearch = `<html><body><div class="listings">
<div class="station"><div class="title"><a href="/tv-listings/stations/cnn/2">CNN</a></div></div>
<div class="station"><div class="title"><a href="/tv-listings/stations/cnn-international/1">CNN International</a></div></div>
</div></body></html>`

const upstreamStation = `<html><body><h1>CNN</h1><div class="listings">
<div class="program"><span class="program-time">7:00 PM - 8:00 PM</span>
<span class="program-title">Anderson Cooper 360</span>
<p class="program-description">News &amp; analysis</p></div>
</div></body></html>`

// upstream fakes both the playlist host and the listings site.
func upstream(t *testing.T, playlistDown *atomic.Bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/list.m3u", func(w http.ResponseWriter, _ *http.Request) {
		if playlistDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, upstreamPlaylist)
	})
	mux.HandleFunc("/tv-listings", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("search") != "CNN" {
			_, _ = fmt.Fprint(w, `<html><body><div class="listings"></div></body></html>`)
			return
		}
		_, _ = fmt.Fprint(w, upstreamSearch)
	})
	mux.HandleFunc("/tv-listings/stations/cnn/2", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, upstreamStation)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestIntegration_GuideAndPlaylist(t *testing.T) {
	var down atomic.Bool
	ts := upstream(t, &down)

	svc := guide.New(guide.Deps{
		Playlist: playlist.NewFetcher(httpx.NewClient(5*time.Second), 5*time.Second),
		Schedule: tvpassport.New(tvpassport.WithBaseURL(ts.URL)),
		Clock: func() time.Time {
			return time.Date(2025, 1, 5, 12, 0, 0, 0, epg.OutputZone())
		},
	}, guide.Options{
		DefaultPlaylistURL: ts.URL + "/list.m3u",
		ResolveConcurrency: 2,
	})
	s := New(svc, Config{Version: "test"})

	rec := serve(t, s, http.MethodGet, "/xmltv.xml")
	require.Equal(t, http.StatusOK, rec.Code)

	doc, err := epg.ParseDocument(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	require.Len(t, doc.Channels, 2)
	assert.Equal(t, epg.ChannelID("CNN"), doc.Channels[0].ID)
	assert.Equal(t, epg.ChannelID("Local Access 99"), doc.Channels[1].ID)
	require.Len(t, doc.Programmes, 1)
	assert.Equal(t, epg.ChannelID("CNN"), doc.Programmes[0].Channel)
	assert.Equal(t, "Anderson Cooper 360", doc.Programmes[0].Title.Value)
	assert.Equal(t, "20250105190000 -0600", doc.Programmes[0].Start)

	rec = serve(t, s, http.MethodGet, "/playlist.m3u")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tvg-id="`+epg.ChannelID("CNN")+`"`)
	assert.Contains(t, rec.Body.String(), `tvg-id="`+epg.ChannelID("Local Access 99")+`"`)

	// a failing playlist host degrades to the empty guide and a 502 playlist
	down.Store(true)
	other := url.QueryEscape(ts.URL + "/list.m3u?v=2")
	rec = serve(t, s, http.MethodGet, "/?m3u="+other)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, epg.EmptyDocument(), rec.Body.Bytes())
	assert.Equal(t, http.StatusBadGateway, serve(t, s, http.MethodGet, "/playlist.m3u?m3u="+other).Code)
}
