// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package epg

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

const (
	// GeneratorName is written to the generator-info-name attribute.
	GeneratorName = "m3u2xmltv"
	// SourceInfoName is written to the source-info-name attribute.
	SourceInfoName = "M3U+TVPassport"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

var emptyDocument = []byte(xmlHeader +
	`<tv generator-info-name="` + GeneratorName + `" source-info-name="` + SourceInfoName + `"></tv>` + "\n")

// TV is the XMLTV root element.
type TV struct {
	XMLName    xml.Name    `xml:"tv"`
	Generator  string      `xml:"generator-info-name,attr,omitempty"`
	Source     string      `xml:"source-info-name,attr,omitempty"`
	Channels   []Channel   `xml:"channel"`
	Programmes []Programme `xml:"programme"`
}

type Channel struct {
	ID          string   `xml:"id,attr"`
	DisplayName []string `xml:"display-name"`
	Icon        *Icon    `xml:"icon,omitempty"`
}

type Icon struct {
	Src string `xml:"src,attr"`
}

type Programme struct {
	Start    string `xml:"start,attr"`
	Stop     string `xml:"stop,attr"`
	Channel  string `xml:"channel,attr"`
	Title    Title  `xml:"title"`
	Desc     string `xml:"desc,omitempty"`
	Category string `xml:"category,omitempty"`
}

type Title struct {
	// Lang contains the language code for the title (optional).
	Lang string `xml:"lang,attr,omitempty"`
	// Value is the character data of the title element.
	Value string `xml:",chardata"`
}

// newTV converts channels and listings into the XMLTV model, keeping input
// order for both.
func newTV(channels []ChannelInfo, listings []Listing) *TV {
	tv := &TV{
		Generator:  GeneratorName,
		Source:     SourceInfoName,
		Channels:   make([]Channel, 0, len(channels)),
		Programmes: make([]Programme, 0, len(listings)),
	}
	for _, c := range channels {
		ch := Channel{ID: c.ID, DisplayName: []string{c.DisplayName}}
		if c.Icon != "" {
			ch.Icon = &Icon{Src: c.Icon}
		}
		tv.Channels = append(tv.Channels, ch)
	}
	for _, l := range listings {
		tv.Programmes = append(tv.Programmes, l.Programme())
	}
	return tv
}

// BuildDocument renders the guide document. All text and attribute values
// are entity-escaped by encoding/xml.
func BuildDocument(channels []ChannelInfo, listings []Listing) ([]byte, error) {
	out, err := xml.MarshalIndent(newTV(channels, listings), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal xmltv: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(len(xmlHeader) + len(out) + 1)
	buf.WriteString(xmlHeader)
	buf.Write(out)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// EmptyDocument is the document built from no channels and no listings. It
// is served whenever the pipeline fails.
func EmptyDocument() []byte {
	return bytes.Clone(emptyDocument)
}
