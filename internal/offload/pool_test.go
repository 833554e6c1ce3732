package offload

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

func TestPool_RunDeliversResult(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	got, err := Run(context.Background(), pool, func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestPool_RunPropagatesError(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	wantErr := errors.New("disk on fire")
	_, err := Run(context.Background(), pool, func() (string, error) {
		return "", wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestPool_PanicSurfacesAsWorkerAborted(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	_, err := Run(context.Background(), pool, func() (int, error) {
		panic("boom")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWorkerAborted)
	assert.Contains(t, err.Error(), "boom")
}

func TestPool_WorkerSurvivesPanic(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	_, err := Run(context.Background(), pool, func() (int, error) {
		panic("first")
	})
	require.ErrorIs(t, err, ErrWorkerAborted)

	// The single worker must still serve subsequent operations
	got, err := Run(context.Background(), pool, func() (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestPool_CallerCancellationDiscardsResult(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	var completed atomic.Bool

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := Run(ctx, pool, func() (int, error) {
			close(started)
			<-release
			completed.Store(true)
			return 1, nil
		})
		done <- err
	}()

	// Cancel while the operation is in flight
	<-started
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, completed.Load(), "caller returned before the operation finished")

	// The dispatched operation still runs to completion
	close(release)
	require.Eventually(t, completed.Load, time.Second, 5*time.Millisecond)
}

func TestPool_CancellationBeforeDispatch(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	go Run(context.Background(), pool, func() (int, error) { //nolint:errcheck
		close(started)
		<-block
		return 0, nil
	})
	<-started

	// The only worker is busy; a cancelled caller must not stay queued
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	_, err := Run(ctx, pool, func() (int, error) {
		ran.Store(true)
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	close(block)
	pool.Close()
	assert.False(t, ran.Load(), "undispatched job must not run after cancellation")
}

func TestPool_ConcurrentOperations(t *testing.T) {
	pool := NewPool(4)
	defer pool.Close()

	const n = 32
	var wg sync.WaitGroup
	var sum atomic.Int64

	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			got, err := Run(context.Background(), pool, func() (int64, error) {
				return v, nil
			})
			require.NoError(t, err)
			sum.Add(got)
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, int64(n*(n+1)/2), sum.Load())
}

func TestPool_CloseWaitsForInFlight(t *testing.T) {
	pool := NewPool(2)

	var completed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Run(context.Background(), pool, func() (struct{}, error) {
				time.Sleep(10 * time.Millisecond)
				completed.Add(1)
				return struct{}{}, nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	pool.Close()
	pool.Close() // idempotent
	assert.Equal(t, int32(4), completed.Load())
}

func TestPool_RunAfterCloseReturnsError(t *testing.T) {
	pool := NewPool(1)
	pool.Close()

	var ran atomic.Bool
	_, err := Run(context.Background(), pool, func() (int, error) {
		ran.Store(true)
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.False(t, ran.Load(), "operation must not run on a closed pool")
}

func TestPool_RunRacingCloseNeverPanics(t *testing.T) {
	pool := NewPool(2)

	const n = 64
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = Run(context.Background(), pool, func() (int, error) {
				return i, nil
			})
		}(i)
	}

	pool.Close()
	wg.Wait()

	// Every submission either ran or was turned away; none may panic
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrPoolClosed)
		}
	}
}
