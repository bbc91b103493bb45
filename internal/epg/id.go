// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package epg

import "encoding/base64"

// ChannelID derives the XMLTV channel id from a display name: the unpadded
// standard base64 of its UTF-8 bytes. Equal names give equal ids.
func ChannelID(displayName string) string {
	return base64.RawStdEncoding.EncodeToString([]byte(displayName))
}
