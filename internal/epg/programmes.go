// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package epg

import (
	"time"
	_ "time/tzdata" // output zone must resolve on images without zoneinfo
)

// OutputZoneName is the civil zone every timestamp is rendered in.
const OutputZoneName = "America/Chicago"

const xmltvTimeLayout = "20060102150405 -0700"

var outputZone = mustLoadZone(OutputZoneName)

func mustLoadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("epg: load zone " + name + ": " + err.Error())
	}
	return loc
}

// OutputZone returns the location used by FormatTime.
func OutputZone() *time.Location { return outputZone }

// ChannelInfo is one channel element of the guide.
type ChannelInfo struct {
	ID          string
	DisplayName string
	Icon        string
}

// Listing is a normalized programme. Stop is always after Start.
type Listing struct {
	ChannelID   string
	ChannelName string
	Start       time.Time
	Stop        time.Time
	Title       string
	Desc        string
	Category    string
}

// Programme converts the listing into its XMLTV element.
func (l Listing) Programme() Programme {
	return Programme{
		Start:    FormatTime(l.Start),
		Stop:     FormatTime(l.Stop),
		Channel:  l.ChannelID,
		Title:    Title{Value: l.Title},
		Desc:     l.Desc,
		Category: l.Category,
	}
}

// FormatTime formats t in the output zone as YYYYMMDDHHMMSS ±HHMM.
func FormatTime(t time.Time) string {
	return t.In(outputZone).Format(xmltvTimeLayout)
}
