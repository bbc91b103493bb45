// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_LoadThenHit(t *testing.T) {
	l := NewLoader(NewMemory[string]())
	var calls atomic.Int32
	load := func(context.Context) (string, error) {
		calls.Add(1)
		return "built", nil
	}

	v, outcome, err := l.GetOrLoad(context.Background(), "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "built", v)
	assert.Equal(t, OutcomeLoaded, outcome)

	v, outcome, err = l.GetOrLoad(context.Background(), "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "built", v)
	assert.Equal(t, OutcomeHit, outcome)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoader_SingleFlight(t *testing.T) {
	l := NewLoader(NewMemory[string]())

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "doc", nil
	}

	const callers = 8
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	results := make([]string, callers)
	outcomes := make([]Outcome, callers)

	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			v, o, err := l.GetOrLoad(context.Background(), "xmltv", time.Minute, load)
			assert.NoError(t, err)
			results[i], outcomes[i] = v, o
		}(i)
	}

	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	assert.Equal(t, int32(1), calls.Load(), "exactly one rebuild")
	loaded := 0
	for i := range results {
		assert.Equal(t, "doc", results[i])
		if outcomes[i] == OutcomeLoaded {
			loaded++
		}
	}
	assert.Equal(t, 1, loaded)
}

func TestLoader_ErrorsAreNotCached(t *testing.T) {
	l := NewLoader(NewMemory[string]())
	boom := errors.New("boom")

	_, _, err := l.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context) (string, error) {
		return "", boom
	})
	require.ErrorIs(t, err, boom)

	v, outcome, err := l.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, OutcomeLoaded, outcome)
}

func TestLoader_LoadSurvivesCallerCancel(t *testing.T) {
	l := NewLoader(NewMemory[string]())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, _, err := l.GetOrLoad(ctx, "k", time.Minute, func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestLoader_Forget(t *testing.T) {
	l := NewLoader(NewMemory[int]())
	n := 0
	load := func(context.Context) (int, error) {
		n++
		return n, nil
	}

	v, _, _ := l.GetOrLoad(context.Background(), "k", time.Minute, load)
	assert.Equal(t, 1, v)

	l.Forget("k")
	v, outcome, _ := l.GetOrLoad(context.Background(), "k", time.Minute, load)
	assert.Equal(t, 2, v)
	assert.Equal(t, OutcomeLoaded, outcome)
	assert.NotNil(t, l.Cache())
}
