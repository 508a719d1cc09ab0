package readback

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireBlocksUntilRelease(t *testing.T) {
	g := NewGuard()
	require.NoError(t, g.Acquire(context.Background()))

	acquired := make(chan struct{})
	go func() {
		_ = g.Acquire(context.Background())
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire should block while guard is held")
	case <-time.After(20 * time.Millisecond):
	}

	g.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Acquire did not unblock after Release")
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	g := NewGuard()
	require.NoError(t, g.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := g.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithSerializesConcurrentCallers(t *testing.T) {
	g := NewGuard()
	var inFlight atomic.Int32
	var maxObserved atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.With(context.Background(), func() error {
				n := inFlight.Add(1)
				if n > maxObserved.Load() {
					maxObserved.Store(n)
				}
				time.Sleep(time.Millisecond)
				inFlight.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxObserved.Load())
}
