// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package matcher picks the schedule-source station that best matches a
// playlist channel name.
//
// Matching is conservative: a channel that cannot be matched with
// confidence is left out of the guide rather than attached to the wrong
// station. This matters most across the US/Canada boundary, where many
// stations share a brand.
package matcher

import (
	"regexp"
	"strings"
	"unicode/utf8"

	lev "github.com/agnivade/levenshtein"

	"github.com/ManuGH/m3u2xmltv/internal/normalize"
)

// DefaultThreshold is the minimum similarity a winner must exceed.
// Raising or lowering it changes which channels get a schedule.
const DefaultThreshold = 0.45

var canadaToken = regexp.MustCompile(`\bca\b`)

// Matcher scores candidate station names against a playlist name.
// A Matcher is immutable and safe for concurrent use.
type Matcher struct {
	threshold float64
	tables    *Tables
}

type options struct {
	threshold float64
	tables    *Tables
}

// Option configures a Matcher.
type Option func(*options)

// WithThreshold overrides the acceptance threshold of the tables.
// Values outside (0,1) are ignored.
func WithThreshold(th float64) Option {
	return func(o *options) {
		if th > 0 && th < 1 {
			o.threshold = th
		}
	}
}

// WithTables replaces the embedded tables.
func WithTables(t *Tables) Option {
	return func(o *options) {
		if t != nil {
			o.tables = t
		}
	}
}

// New returns a Matcher using the embedded tables unless overridden.
func New(opts ...Option) *Matcher {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.tables == nil {
		o.tables = DefaultTables()
	}
	if o.threshold == 0 {
		o.threshold = o.tables.Threshold
	}
	if o.threshold == 0 {
		o.threshold = DefaultThreshold
	}
	return &Matcher{threshold: o.threshold, tables: o.tables}
}

// Threshold reports the acceptance threshold in use.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Similarity is 1 - editDistance/maxLen over the normalized names, in [0,1].
// It is 0 when either normalized name is empty.
func Similarity(a, b string) float64 {
	na := normalize.ChannelName(a)
	nb := normalize.ChannelName(b)
	if na == "" || nb == "" {
		return 0
	}
	maxLen := utf8.RuneCountInString(na)
	if n := utf8.RuneCountInString(nb); n > maxLen {
		maxLen = n
	}
	return 1 - float64(lev.ComputeDistance(na, nb))/float64(maxLen)
}

// Synonyms returns the known alternate names for name, or nil.
func (m *Matcher) Synonyms(name string) []string {
	return m.tables.Synonyms[normalize.ChannelName(name)]
}

// PreferUS drops stations marked as Canadian unless their brand only
// exists in Canada. Input order is preserved.
func (m *Matcher) PreferUS(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		name := strings.ToLower(c)
		// "canada" also covers the "(canada)" suffix used by the source.
		if strings.Contains(name, "canada") || canadaToken.MatchString(name) {
			if !m.tables.CanadaExclusive.MatchString(name) {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// Match returns the highest scoring name from the regionally filtered
// candidates followed by the synonyms of name. Ties keep the first seen.
// The winner is returned only if its score exceeds the threshold; it may be
// a synonym rather than one of the candidates.
func (m *Matcher) Match(name string, candidates []string) (string, bool) {
	pool := append(m.PreferUS(candidates), m.Synonyms(name)...)

	best, bestScore, found := "", 0.0, false
	for _, cand := range pool {
		score := Similarity(name, cand)
		if !found || score > bestScore {
			best, bestScore, found = cand, score, true
		}
	}
	if !found || bestScore <= m.threshold {
		return "", false
	}
	return best, true
}

// Resolve is Match restricted to real stations. When a synonym wins, the
// station is the filtered candidate whose normalized key equals an alias of
// name (name itself or one of its synonyms). Without such a candidate the
// channel stays unresolved; a near sibling like "ESPN2" for "ESPN" is never
// taken.
func (m *Matcher) Resolve(name string, candidates []string) (string, bool) {
	winner, ok := m.Match(name, candidates)
	if !ok {
		return "", false
	}

	filtered := m.PreferUS(candidates)
	for _, c := range filtered {
		if c == winner {
			return c, true
		}
	}

	aliases := append([]string{name}, m.Synonyms(name)...)
	for _, c := range filtered {
		key := normalize.ChannelName(c)
		if key == "" {
			continue
		}
		for _, a := range aliases {
			if normalize.ChannelName(a) == key {
				return c, true
			}
		}
	}
	return "", false
}

var defaultMatcher = New()

// Default returns the process-wide matcher built from the embedded tables.
func Default() *Matcher { return defaultMatcher }
