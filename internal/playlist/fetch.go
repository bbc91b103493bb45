// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playlist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ManuGH/m3u2xmltv/internal/platform/httpx"
)

// DefaultTimeout bounds a single playlist download.
const DefaultTimeout = 15 * time.Second

// maxPlaylistBytes caps the body we are willing to read.
const maxPlaylistBytes = 20 << 20

// ErrStatus is matched by errors.Is for non-2xx playlist responses.
var ErrStatus = errors.New("playlist fetch: unexpected status")

// StatusError carries the HTTP status of a failed download.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("playlist fetch failed: %d", e.Code) }

// Is lets errors.Is(err, ErrStatus) match.
func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// Fetcher downloads playlists over HTTP.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewFetcher returns a Fetcher. A nil client gets a hardened default and a
// non-positive timeout falls back to DefaultTimeout.
func NewFetcher(client *http.Client, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = httpx.NewClient(timeout)
	}
	return &Fetcher{client: client, timeout: timeout}
}

// Fetch returns the raw playlist text at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build playlist request: %w", err)
	}
	res, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch playlist: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return "", &StatusError{Code: res.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxPlaylistBytes))
	if err != nil {
		return "", fmt.Errorf("read playlist: %w", err)
	}
	return string(body), nil
}
