// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package normalize canonicalizes channel and station names into comparable keys.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// qualifiers are whole-word tokens that carry no identity ("CNN HD", "FOX East").
	qualifiers = regexp.MustCompile(`\b(hd|sd|east|west|channel|ch|tv|network)\b`)
	nonAlnum   = regexp.MustCompile(`[^a-z0-9]+`)
	spaces     = regexp.MustCompile(` +`)
)

// ChannelName returns the matching key for a channel or station name:
// lower-cased, diacritics folded, qualifier words removed, runs of
// non-alphanumerics collapsed to one space, trimmed.
//
// Separators are collapsed before qualifiers are stripped so that "HD_"
// and "hd" yield the same key; this keeps ChannelName idempotent.
// An empty input yields an empty key.
func ChannelName(name string) string {
	if name == "" {
		return ""
	}
	s := strings.ToLower(fold(name))
	s = nonAlnum.ReplaceAllString(s, " ")
	s = qualifiers.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// fold strips combining marks so "Télé" compares equal to "Tele".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Token normalizes a string token for identity comparisons:
// - trims Unicode whitespace + invisible edge characters
// - lowercases for case-insensitive comparisons
func Token(s string) string {
	return strings.ToLower(strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) ||
			r == '\u200B' || // Zero Width Space
			r == '\u200C' || // Zero Width Non-Joiner
			r == '\u200D' || // Zero Width Joiner
			r == '\uFEFF' // Zero Width Non-Breaking Space (BOM)
	}))
}
