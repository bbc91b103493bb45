// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package epg

import (
	"bytes"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDocument_EmptyEqualsFixedBytes(t *testing.T) {
	got, err := BuildDocument(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, string(EmptyDocument()), string(got))
	assert.Equal(t,
		"<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<tv generator-info-name=\"m3u2xmltv\" source-info-name=\"M3U+TVPassport\"></tv>\n",
		string(got))
}

func TestEmptyDocument_ReturnsCopy(t *testing.T) {
	a := EmptyDocument()
	a[0] = 'X'
	assert.True(t, bytes.HasPrefix(EmptyDocument(), []byte("<?xml")))
}

func TestBuildDocument_EscapesText(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	channels := []ChannelInfo{{ID: ChannelID(`A&B "<1>"`), DisplayName: `A&B "<1>"`, Icon: `http://x/?a=1&b="2"`}}
	listings := []Listing{{
		ChannelID: channels[0].ID,
		Start:     start,
		Stop:      start.Add(time.Hour),
		Title:     `Tom & Jerry <"Live">`,
		Desc:      `5 < 6 & "quoted"`,
		Category:  `Kids & Family`,
	}}

	doc, err := BuildDocument(channels, listings)
	require.NoError(t, err)

	parsed, err := ParseDocument(bytes.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, parsed.Programmes, 1)
	assert.Equal(t, `Tom & Jerry <"Live">`, parsed.Programmes[0].Title.Value)
	assert.Equal(t, `5 < 6 & "quoted"`, parsed.Programmes[0].Desc)
	assert.Equal(t, `http://x/?a=1&b="2"`, parsed.Channels[0].Icon.Src)

	titleRE := regexp.MustCompile(`<title>(.*)</title>`)
	m := titleRE.FindSubmatch(doc)
	require.NotNil(t, m)
	assert.NotContains(t, string(m[1]), "<")
	assert.NotContains(t, string(m[1]), `"`)
	assert.Regexp(t, `&amp;|&#38;`, string(m[1]))
}

func TestBuildDocument_OmitsEmptyOptionalElements(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	doc, err := BuildDocument(
		[]ChannelInfo{{ID: "QQ", DisplayName: "A"}},
		[]Listing{{ChannelID: "QQ", Start: start, Stop: start.Add(time.Hour), Title: "Show"}},
	)
	require.NoError(t, err)
	s := string(doc)
	assert.NotContains(t, s, "<desc")
	assert.NotContains(t, s, "<category")
	assert.NotContains(t, s, "<icon")
	assert.Contains(t, s, "<title>Show</title>")
}

func TestBuildDocument_KeepsInputOrder(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	channels := []ChannelInfo{{ID: "b", DisplayName: "B"}, {ID: "a", DisplayName: "A"}}
	listings := []Listing{
		{ChannelID: "b", Start: start.Add(time.Hour), Stop: start.Add(2 * time.Hour), Title: "second"},
		{ChannelID: "a", Start: start, Stop: start.Add(time.Hour), Title: "first"},
	}
	doc, err := BuildDocument(channels, listings)
	require.NoError(t, err)

	parsed, err := ParseDocument(bytes.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, parsed.Channels, 2)
	assert.Equal(t, "b", parsed.Channels[0].ID)
	assert.Equal(t, "second", parsed.Programmes[0].Title.Value)
	assert.Equal(t, "first", parsed.Programmes[1].Title.Value)
}

func TestChannelID(t *testing.T) {
	assert.Equal(t, "Q05O", ChannelID("CNN"))
	assert.Equal(t, "RVNQTg", ChannelID("ESPN"))
	assert.Equal(t, ChannelID("Fox News"), ChannelID("Fox News"))
	assert.NotEqual(t, ChannelID("Fox News"), ChannelID("Fox news"))
	assert.Equal(t, "", ChannelID(""))
}

func TestFormatTime(t *testing.T) {
	winter := time.Date(2025, 1, 15, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, "20250115123000 -0600", FormatTime(winter))

	summer := time.Date(2025, 7, 4, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, "20250703220000 -0500", FormatTime(summer))
}
