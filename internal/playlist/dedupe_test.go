// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupe_FirstWinsAndOrderKept(t *testing.T) {
	items := []Item{
		{Name: "CNN", URL: "http://a/1"},
		{Name: "ESPN", URL: "http://a/2"},
		{Name: "cnn", URL: "http://a/3"},
		{Name: "Other", TvgName: "ESPN", URL: "http://a/4"},
		{Name: "HBO", URL: "http://a/5"},
	}

	got := Dedupe(items)

	var urls []string
	for _, it := range got {
		urls = append(urls, it.URL)
	}
	assert.Equal(t, []string{"http://a/1", "http://a/2", "http://a/5"}, urls)
}

func TestDedupe_TvgNameTakesPrecedence(t *testing.T) {
	items := []Item{
		{Name: "Same", TvgName: "Alpha", URL: "http://a/1"},
		{Name: "Same", TvgName: "Beta", URL: "http://a/2"},
	}
	assert.Len(t, Dedupe(items), 2)
}

func TestDedupe_EdgeWhitespaceCollapses(t *testing.T) {
	items := []Item{
		{Name: "CNN ", URL: "http://a/1"},
		{Name: "\u200bCNN", URL: "http://a/2"},
		{Name: "CNN", URL: "http://a/3"},
		{Name: "CNN 2", URL: "http://a/4"},
	}

	got := Dedupe(items)
	if assert.Len(t, got, 2) {
		assert.Equal(t, "CNN ", got[0].DisplayName())
		assert.Equal(t, "http://a/1", got[0].URL)
		assert.Equal(t, "CNN 2", got[1].DisplayName())
	}
}

func TestDedupe_Empty(t *testing.T) {
	assert.Empty(t, Dedupe(nil))
}
