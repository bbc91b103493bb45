// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package tvpassport scrapes station search results and listing pages from
// the TVPassport website.
package tvpassport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	xglog "github.com/ManuGH/m3u2xmltv/internal/log"
	"github.com/ManuGH/m3u2xmltv/internal/matcher"
	"github.com/ManuGH/m3u2xmltv/internal/metrics"
	"github.com/ManuGH/m3u2xmltv/internal/platform/httpx"
	"github.com/ManuGH/m3u2xmltv/internal/ratelimit"
)

const (
	// DefaultBaseURL is the public TVPassport site.
	DefaultBaseURL = "https://www.tvpassport.com"
	// DefaultTimeout bounds a single page request.
	DefaultTimeout = 20 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptHTML = "text/html,application/xhtml+xml"

	maxPageBytes  = 8 << 20
	unknownName   = "Unknown"
	opSearch      = "search"
	opSchedule    = "schedule"
	statusFailure = "error"
)

// Station is one search hit.
type Station struct {
	Name  string
	URL   string
	Score float64
}

// Row is one raw listing row as printed on a station page.
type Row struct {
	Title     string
	TimeRange string
	Desc      string
	Category  string
}

// Schedule is the content of one station page.
type Schedule struct {
	StationName string
	Rows        []Row
}

// Client talks to TVPassport.
type Client struct {
	baseURL string
	http    *http.Client
	pacer   *ratelimit.Pacer
	score   func(a, b string) float64
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default outbound client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithPacer spaces outbound requests.
func WithPacer(p *ratelimit.Pacer) Option {
	return func(c *Client) { c.pacer = p }
}

// WithScorer replaces the similarity used to rank search hits.
func WithScorer(fn func(a, b string) float64) Option {
	return func(c *Client) { c.score = fn }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a Client for DefaultBaseURL unless overridden.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		score:   matcher.Similarity,
		logger:  xglog.WithComponent("tvpassport"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = NewHTTPClient(DefaultTimeout)
	}
	return c
}

// NewHTTPClient returns an outbound client that sends the browser-like
// headers the site expects.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return httpx.NewClient(timeout,
		httpx.WithHeader("User-Agent", userAgent),
		httpx.WithHeader("Accept", acceptHTML),
	)
}

// BaseURL returns the site root requests are made against.
func (c *Client) BaseURL() string { return c.baseURL }

// SearchStations queries the site search for name. Hits are ranked by
// similarity to name, best first, keeping site order among equal scores.
// A non-2xx response yields no hits and no error.
func (c *Client) SearchStations(ctx context.Context, name string) ([]Station, error) {
	q := url.Values{"search": {name}}
	doc, ok, err := c.get(ctx, opSearch, c.baseURL+"/tv-listings?"+q.Encode())
	if err != nil || !ok {
		return nil, err
	}

	var out []Station
	doc.Find(".listings .station .title a").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasPrefix(href, "/") {
			return
		}
		stationName := textOf(a)
		out = append(out, Station{
			Name:  stationName,
			URL:   c.baseURL + href,
			Score: c.score(name, stationName),
		})
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// FetchSchedule reads the listing rows of a station page. days is the
// horizon requested; the station page carries the current day only, so
// values above 1 read the same page. A non-2xx response yields an empty
// schedule and no error.
func (c *Client) FetchSchedule(ctx context.Context, stationURL string, days int) (Schedule, error) {
	if days < 1 {
		days = 1
	}
	doc, ok, err := c.get(ctx, opSchedule, stationURL)
	if err != nil || !ok {
		return Schedule{}, err
	}

	sched := Schedule{StationName: textOf(doc.Find("h1").First())}
	if sched.StationName == "" {
		sched.StationName = unknownName
	}

	sched.Rows = extractRows(doc, ".listings .program", ".program-title", ".program-time", ".program-description", ".program-genre")
	if len(sched.Rows) == 0 {
		sched.Rows = extractRows(doc, ".listings .row", ".title", ".time", ".description", "")
	}
	c.logger.Debug().
		Str(xglog.FieldEvent, "tvpassport.schedule.parsed").
		Str(xglog.FieldStationURL, stationURL).
		Int("rows", len(sched.Rows)).
		Int("days", days).
		Msg("station page parsed")
	return sched, nil
}

// extractRows reads one row per container. Containers without a title are
// skipped so an empty primary layout falls through to the secondary one.
func extractRows(doc *goquery.Document, container, title, timeRange, desc, category string) []Row {
	var rows []Row
	doc.Find(container).Each(func(_ int, n *goquery.Selection) {
		r := Row{
			Title:     firstText(n, title),
			TimeRange: firstText(n, timeRange),
			Desc:      firstText(n, desc),
		}
		if category != "" {
			r.Category = firstText(n, category)
		}
		if r.Title == "" {
			return
		}
		rows = append(rows, r)
	})
	return rows
}

// firstText is the trimmed text of the first descendant of n matching sel.
func firstText(n *goquery.Selection, sel string) string {
	return textOf(n.Find(sel).First())
}

func textOf(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

// get fetches and parses an HTML page. ok is false for non-2xx responses.
func (c *Client) get(ctx context.Context, op, target string) (*goquery.Document, bool, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build %s request: %w", op, err)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveSourceRequest(op, statusFailure, time.Since(start))
		return nil, false, fmt.Errorf("%s %s: %w", op, target, err)
	}
	defer func() { _ = res.Body.Close() }()
	metrics.ObserveSourceRequest(op, strconv.Itoa(res.StatusCode), time.Since(start))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		c.logger.Debug().
			Str(xglog.FieldEvent, "tvpassport.status").
			Str("op", op).
			Int(xglog.FieldStatus, res.StatusCode).
			Str("url", target).
			Msg("non-success response from source")
		return nil, false, nil
	}

	root, err := html.Parse(io.LimitReader(res.Body, maxPageBytes))
	if err != nil {
		return nil, false, fmt.Errorf("parse %s page: %w", op, err)
	}
	return goquery.NewDocumentFromNode(root), true, nil
}
