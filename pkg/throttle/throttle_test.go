package throttle_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultsentry/vaultsentry/pkg/throttle"
)

func TestNewRejectsNonPositiveLimit(t *testing.T) {
	for _, limit := range []int{0, -1} {
		_, err := throttle.New(limit)
		require.Error(t, err)
	}
}

func TestConcurrencyNeverExceedsLimit(t *testing.T) {
	const (
		limit = 4
		total = 40
	)

	th, err := throttle.New(limit)
	require.NoError(t, err)

	var (
		inFlight  atomic.Int64
		maxSeen   atomic.Int64
		completed atomic.Int64
		wg        sync.WaitGroup
	)

	for range total {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := th.Do(context.Background(), func() error {
				n := inFlight.Add(1)
				for {
					prev := maxSeen.Load()
					if n <= prev || maxSeen.CompareAndSwap(prev, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inFlight.Add(-1)
				completed.Add(1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxSeen.Load(), int64(limit))
	assert.Equal(t, int64(total), completed.Load())
}

func TestErrorsPropagateUnchanged(t *testing.T) {
	th, err := throttle.New(1)
	require.NoError(t, err)

	boom := errors.New("upstream rejected")
	got := th.Do(context.Background(), func() error { return boom })
	require.ErrorIs(t, got, boom)
}

func TestCanceledContextStopsWaiting(t *testing.T) {
	th, err := throttle.New(1)
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = th.Do(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := th.Do(ctx, func() error {
		t.Error("op must not run after cancellation")
		return nil
	})
	require.ErrorIs(t, got, context.Canceled)

	close(release)
}
