// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService   = "service"
	FieldVersion   = "version"
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStage     = "stage"

	// Guide fields
	FieldChannel     = "channel"
	FieldStation     = "station"
	FieldStationURL  = "station_url"
	FieldPlaylistURL = "playlist_url"
	FieldCandidates  = "candidates"
	FieldProgrammes  = "programmes"
	FieldCacheKey    = "cache_key"

	// HTTP fields
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldBytes      = "bytes"
	FieldRemoteAddr = "remote_addr"
)
