// ABOUTME: Worker pool that runs blocking store operations off the event loop
// ABOUTME: Explicit submit plus one-shot result channel per operation

package offload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrWorkerAborted is returned when the submitted operation panicked
// instead of returning. The panic value is attached to the wrapping
// error; it is never silently dropped.
var ErrWorkerAborted = errors.New("worker aborted")

// ErrPoolClosed is returned by Run when the pool has been closed.
var ErrPoolClosed = errors.New("pool closed")

// Pool runs submitted operations on a fixed set of worker goroutines so
// that blocking calls (the database mutex, disk I/O) never run on the
// event dispatcher's own path. Results travel back on a one-shot
// channel per operation; see Run.
type Pool struct {
	jobs   chan func()
	wg     sync.WaitGroup
	logger *slog.Logger

	// mu guards closed and orders every submit against Close, so the
	// jobs channel is never closed under an in-flight send.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewPool starts a pool with the given number of workers. Values below
// one are raised to one.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}

	p := &Pool{
		jobs:   make(chan func()),
		logger: slog.Default().With("component", "offload"),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	p.logger.Debug("offload pool started", "workers", workers)
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		job()
	}
}

// Close stops accepting work and waits for in-flight operations to
// finish. It is safe to call multiple times; Run calls racing or
// following Close return ErrPoolClosed instead of submitting.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

type result[T any] struct {
	value T
	err   error
}

// Run submits fn to the pool and suspends the caller until its result
// arrives. No timeout is imposed: an operation that never completes
// suspends the caller indefinitely.
//
// Cancellation is not propagated into fn. If ctx ends while the caller
// waits, Run returns ctx.Err() and the operation runs to completion
// with its result discarded; the one-shot channel is buffered so the
// worker never blocks on a departed caller. If ctx ends before a worker
// accepts the job, the job is never dispatched.
//
// A panic inside fn is recovered on the worker and surfaced to the
// caller as an error wrapping ErrWorkerAborted. Submitting to a closed
// pool returns ErrPoolClosed.
func Run[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	out := make(chan result[T], 1)

	job := func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("operation panicked on worker", "panic", r)
				var zero T
				out <- result[T]{zero, fmt.Errorf("%w: %v", ErrWorkerAborted, r)}
			}
		}()
		value, err := fn()
		out <- result[T]{value, err}
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		var zero T
		return zero, ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		var zero T
		return zero, ctx.Err()
	}

	select {
	case res := <-out:
		return res.value, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
