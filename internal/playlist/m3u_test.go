// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playlist

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="cnn.us" tvg-name="CNN" tvg-logo="http://logo/cnn.png" group-title="News",CNN HD
http://stream/cnn
#EXTINF:-1 tvg-chno="7" logo="http://logo/espn.png",ESPN, East
https://stream/espn
#EXTINF:-1 tvg-name="Orphan",Orphan
#EXTVLCOPT:network-caching=1000
not-a-url
#EXTINF:-1,Fox News
http://stream/fox
`

func TestParse(t *testing.T) {
	items, err := ParseString(samplePlaylist)
	require.NoError(t, err)

	want := []Item{
		{Name: "CNN HD", TvgID: "cnn.us", TvgName: "CNN", TvgLogo: "http://logo/cnn.png", Group: "News", URL: "http://stream/cnn"},
		{Name: "East", TvgChNo: 7, TvgLogo: "http://logo/espn.png", URL: "https://stream/espn"},
		{Name: "Fox News", URL: "http://stream/fox"},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Fatalf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_EntryWithoutURLIsDropped(t *testing.T) {
	items, err := ParseString("#EXTINF:-1,Lonely\n#EXTINF:-1,Next\nhttp://x/next\n")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Next", items[0].Name)
}

func TestParse_Empty(t *testing.T) {
	items, err := ParseString("")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestItem_DisplayNameAndKey(t *testing.T) {
	it := Item{Name: "CNN HD", TvgName: "  CNN "}
	assert.Equal(t, "  CNN ", it.DisplayName())
	assert.Equal(t, "cnn", it.Key())

	it = Item{Name: "Fox News"}
	assert.Equal(t, "Fox News", it.DisplayName())
	assert.Equal(t, "fox news", it.Key())
}

func TestWriteM3U(t *testing.T) {
	items := []Item{
		{Name: "CNN", TvgID: "Q05O", TvgName: "CNN", TvgChNo: 3, Group: `News "Live"`, URL: "http://stream/cnn"},
		{Name: "Fox News", URL: "http://stream/fox"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteM3U(&buf, items))

	want := strings.Join([]string{
		"#EXTM3U",
		`#EXTINF:-1 tvg-chno="3" tvg-id="Q05O" tvg-name="CNN" group-title="News 'Live'",CNN`,
		"http://stream/cnn",
		"#EXTINF:-1,Fox News",
		"http://stream/fox",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())

	again, err := Parse(&buf)
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, "Q05O", again[0].TvgID)
	assert.Equal(t, 3, again[0].TvgChNo)
}
