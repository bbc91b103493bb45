// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package epg

import (
	"regexp"
	"strconv"
	"time"
)

var (
	rangeRE   = regexp.MustCompile(`^(.+?)\s*-\s*(.+)$`)
	clock12RE = regexp.MustCompile(`(?i)(\d{1,2}):?(\d{2})?\s*(AM|PM)`)
	clock24RE = regexp.MustCompile(`(\d{1,2}):?(\d{2})`)
)

// ParseTimeRange parses listing text such as "7:00 PM - 8:30 PM" or
// "23:30-00:15". Both ends are anchored to the calendar day of now in loc.
// A stop that is not after its start is moved to the next day. ok is false
// when the text has no range or either end is not a valid time of day.
func ParseTimeRange(text string, now time.Time, loc *time.Location) (start, stop time.Time, ok bool) {
	if loc == nil {
		loc = outputZone
	}
	m := rangeRE.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	base := now.In(loc)

	start, ok = parseClock(m[1], base)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	stop, ok = parseClock(m[2], base)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if !stop.After(start) {
		stop = stop.AddDate(0, 0, 1)
	}
	return start, stop, true
}

// parseClock reads one 12-hour or 24-hour time of day on base's date.
func parseClock(text string, base time.Time) (time.Time, bool) {
	var hour, minute int
	if m := clock12RE.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		// Hour 0 is tolerated and reads as 12.
		if hour > 12 {
			return time.Time{}, false
		}
		pm := m[3][0] == 'P' || m[3][0] == 'p'
		switch {
		case pm && hour < 12:
			hour += 12
		case !pm && hour == 12:
			hour = 0
		}
	} else if m := clock24RE.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if hour > 23 {
			return time.Time{}, false
		}
	} else {
		return time.Time{}, false
	}
	if minute > 59 {
		return time.Time{}, false
	}
	y, mo, d := base.Date()
	return time.Date(y, mo, d, hour, minute, 0, 0, base.Location()), true
}
