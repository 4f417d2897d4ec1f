package tokenrefresh

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

func TestLocalLocker_SerializesSameKey(t *testing.T) {
	l := NewLocalLocker()

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "int-1")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Empty(t, l.locks)
}

func TestLocalLocker_DistinctKeysDoNotBlock(t *testing.T) {
	l := NewLocalLocker()

	unlockA, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestLocalLocker_UnlockIsIdempotent(t *testing.T) {
	l := NewLocalLocker()

	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	unlock()
	unlock()

	unlock, err = l.Lock(context.Background(), "a")
	require.NoError(t, err)
	unlock()
	assert.Empty(t, l.locks)
}

func TestLocalLocker_ContextCanceled(t *testing.T) {
	l := NewLocalLocker()

	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = l.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

type recordingLocker struct {
	name   string
	events *[]string
	err    error
}

func (r recordingLocker) Lock(_ context.Context, key string) (func(), error) {
	if r.err != nil {
		return nil, r.err
	}
	*r.events = append(*r.events, "lock "+r.name)
	return func() { *r.events = append(*r.events, "unlock "+r.name) }, nil
}

func TestChainLocker(t *testing.T) {
	var events []string
	chain := ChainLocker{
		recordingLocker{name: "local", events: &events},
		recordingLocker{name: "redis", events: &events},
	}

	unlock, err := chain.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
	unlock()

	assert.Equal(t, []string{"lock local", "lock redis", "unlock redis", "unlock local"}, events)
}

func TestChainLocker_ReleasesOnFailure(t *testing.T) {
	var events []string
	chain := ChainLocker{
		recordingLocker{name: "local", events: &events},
		recordingLocker{name: "redis", events: &events, err: errors.New("redis down")},
	}

	_, err := chain.Lock(context.Background(), "k")
	require.Error(t, err)
	assert.Equal(t, []string{"lock local", "unlock local"}, events)
}
