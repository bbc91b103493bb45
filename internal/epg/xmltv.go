// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package epg builds XMLTV guide documents from normalized channel and
// programme records.
package epg

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// maxDocumentSize caps how much of a document ParseDocument will read.
const maxDocumentSize = 50 * 1024 * 1024

// ParseDocument decodes an XMLTV document with strict parsing and no entity
// expansion.
func ParseDocument(r io.Reader) (*TV, error) {
	var doc TV
	dec := xml.NewDecoder(io.LimitReader(r, maxDocumentSize))
	dec.Strict = true
	dec.Entity = make(map[string]string)

	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode xmltv: empty document")
		}
		return nil, fmt.Errorf("decode xmltv: %w", err)
	}
	return &doc, nil
}
