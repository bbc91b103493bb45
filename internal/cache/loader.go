// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// Outcome describes how GetOrLoad produced its value.
type Outcome string

const (
	OutcomeHit    Outcome = "hit"    // served from the cache
	OutcomeLoaded Outcome = "loaded" // this caller ran the load
	OutcomeShared Outcome = "shared" // joined a load started by another caller
)

// LoadFunc computes the value for a missing key.
type LoadFunc[V any] func(ctx context.Context) (V, error)

// Loader puts single-flight get-or-compute on top of a Cache: at most one
// load per key is in flight, and concurrent callers wait for its result.
type Loader[V any] struct {
	cache Cache[V]
	group singleflight.Group
}

// NewLoader wraps c.
func NewLoader[V any](c Cache[V]) *Loader[V] {
	return &Loader[V]{cache: c}
}

// Cache returns the underlying cache.
func (l *Loader[V]) Cache() Cache[V] { return l.cache }

// GetOrLoad returns the cached value for key or runs fn once to compute it.
// A successful result is cached for ttl; errors are returned to every
// waiting caller and not cached.
func (l *Loader[V]) GetOrLoad(ctx context.Context, key string, ttl time.Duration, fn LoadFunc[V]) (V, Outcome, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, OutcomeHit, nil
	}

	ran := false
	res, err, shared := l.group.Do(key, func() (any, error) {
		// Another flight may have filled the key between Get and Do.
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		ran = true
		// The load outlives the first caller's cancellation; the others are waiting on it.
		v, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		l.cache.Set(key, v, ttl)
		return v, nil
	})

	outcome := OutcomeHit
	switch {
	case ran:
		outcome = OutcomeLoaded
	case shared:
		outcome = OutcomeShared
	}

	var zero V
	if err != nil {
		return zero, outcome, fmt.Errorf("load %q: %w", key, err)
	}
	v, _ := res.(V)
	return v, outcome, nil
}

// Forget drops key from the cache and from any in-flight bookkeeping, so the
// next call reloads.
func (l *Loader[V]) Forget(key string) {
	l.group.Forget(key)
	l.cache.Delete(key)
}
