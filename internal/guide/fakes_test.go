// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package guide

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/m3u2xmltv/internal/epg"
	"github.com/ManuGH/m3u2xmltv/internal/tvpassport"
)

var errUpstream = errors.New("upstream unavailable")

type fakePlaylist struct {
	text  string
	err   error
	panic bool
	delay time.Duration
	calls atomic.Int32
}

func (f *fakePlaylist) Fetch(ctx context.Context, _ string) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.panic {
		panic("playlist exploded")
	}
	return f.text, f.err
}

type fakeSchedule struct {
	mu        sync.Mutex
	stations  map[string][]tvpassport.Station
	searchErr map[string]error
	panicOn   map[string]bool
	schedules map[string]tvpassport.Schedule
	fetchErr  map[string]error
	delay     time.Duration

	searches      atomic.Int32
	fetches       atomic.Int32
	inSearch      atomic.Int32
	maxInSearch   atomic.Int32
	inFetch       atomic.Int32
	maxInFetch    atomic.Int32
	fetchedOrder  []string
	lastDaysAsked int
}

func newFakeSchedule() *fakeSchedule {
	return &fakeSchedule{
		stations:  map[string][]tvpassport.Station{},
		searchErr: map[string]error{},
		panicOn:   map[string]bool{},
		schedules: map[string]tvpassport.Schedule{},
		fetchErr:  map[string]error{},
	}
}

func trackMax(cur, peak *atomic.Int32) {
	n := cur.Add(1)
	for {
		old := peak.Load()
		if n <= old || peak.CompareAndSwap(old, n) {
			return
		}
	}
}

func (f *fakeSchedule) SearchStations(ctx context.Context, name string) ([]tvpassport.Station, error) {
	f.searches.Add(1)
	trackMax(&f.inSearch, &f.maxInSearch)
	defer f.inSearch.Add(-1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panicOn[name] {
		panic("search exploded for " + name)
	}
	if err := f.searchErr[name]; err != nil {
		return nil, err
	}
	return f.stations[name], nil
}

func (f *fakeSchedule) FetchSchedule(ctx context.Context, stationURL string, days int) (tvpassport.Schedule, error) {
	f.fetches.Add(1)
	trackMax(&f.inFetch, &f.maxInFetch)
	defer f.inFetch.Add(-1)

	f.mu.Lock()
	f.fetchedOrder = append(f.fetchedOrder, stationURL)
	f.lastDaysAsked = days
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panicOn[stationURL] {
		panic("fetch exploded")
	}
	if err := f.fetchErr[stationURL]; err != nil {
		return tvpassport.Schedule{}, err
	}
	return f.schedules[stationURL], nil
}

func fixedClock() time.Time {
	return time.Date(2025, 1, 5, 12, 0, 0, 0, epg.OutputZone())
}

func quietLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
