// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package playlist reads, deduplicates and writes M3U channel playlists.
package playlist

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/ManuGH/m3u2xmltv/internal/normalize"
)

// Item is one playlist entry: the #EXTINF metadata plus its stream URL.
type Item struct {
	Name    string
	TvgID   string
	TvgName string
	TvgChNo int
	TvgLogo string
	Group   string
	URL     string
}

// DisplayName is the name the guide shows: tvg-name when present, else the
// name after the comma.
func (it Item) DisplayName() string {
	if it.TvgName != "" {
		return it.TvgName
	}
	return it.Name
}

// Key is the identity used for deduplication. Besides case it folds edge
// whitespace and zero-width characters, so "CNN " and "\u200bCNN" collapse
// into one entry. The survivor keeps its untrimmed DisplayName, and with it
// the channel id derived from that name.
func (it Item) Key() string {
	return normalize.Token(it.DisplayName())
}

var attrRE = regexp.MustCompile(`(\w[\w-]*)="([^"]*)"`)

const maxLine = 1024 * 1024

// Parse reads an M3U playlist. Each #EXTINF line opens an entry that the
// next http(s) URL line completes; entries without a URL are dropped and
// every other line is ignored.
func Parse(r io.Reader) ([]Item, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	var (
		items   []Item
		pending *Item
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "#EXTINF"):
			it := parseExtinf(line)
			pending = &it
		case strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://"):
			if pending != nil {
				pending.URL = line
				items = append(items, *pending)
				pending = nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan playlist: %w", err)
	}
	return items, nil
}

// ParseString is Parse over an in-memory playlist.
func ParseString(text string) ([]Item, error) {
	return Parse(strings.NewReader(text))
}

// parseExtinf reads `#EXTINF:-1 tvg-id="x" tvg-name="CNN" ...,CNN HD`.
func parseExtinf(line string) Item {
	rest := line
	if idx := strings.Index(line, ":"); idx != -1 {
		rest = line[idx+1:]
	}

	attrs, name := rest, ""
	if idx := strings.LastIndex(rest, ","); idx != -1 {
		attrs, name = rest[:idx], rest[idx+1:]
	}

	it := Item{Name: strings.TrimSpace(name)}
	for _, m := range attrRE.FindAllStringSubmatch(attrs, -1) {
		key, val := m[1], m[2]
		switch key {
		case "tvg-id":
			it.TvgID = val
		case "tvg-name":
			it.TvgName = val
		case "group-title":
			it.Group = val
		case "tvg-logo", "logo":
			it.TvgLogo = val
		case "tvg-chno":
			if n, err := strconv.Atoi(val); err == nil {
				it.TvgChNo = n
			}
		}
	}
	return it
}

// WriteM3U writes items as an extended M3U playlist.
func WriteM3U(w io.Writer, items []Item) error {
	buf := &bytes.Buffer{}
	buf.WriteString("#EXTM3U\n")
	for _, it := range items {
		buf.WriteString("#EXTINF:-1")
		if it.TvgChNo > 0 {
			fmt.Fprintf(buf, ` tvg-chno="%d"`, it.TvgChNo)
		}
		writeAttr(buf, "tvg-id", it.TvgID)
		writeAttr(buf, "tvg-name", it.TvgName)
		writeAttr(buf, "tvg-logo", it.TvgLogo)
		writeAttr(buf, "group-title", it.Group)
		buf.WriteString("," + it.Name + "\n")
		buf.WriteString(it.URL + "\n")
	}
	_, err := io.Copy(w, buf)
	return err
}

func writeAttr(buf *bytes.Buffer, key, val string) {
	if val == "" {
		return
	}
	// Attribute values cannot carry a double quote in M3U.
	fmt.Fprintf(buf, ` %s="%s"`, key, strings.ReplaceAll(val, `"`, "'"))
}
