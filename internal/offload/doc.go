// Package offload bridges the event dispatcher and blocking storage
// work.
//
// Every catalog operation acquires the store's mutex and performs
// synchronous database I/O, so running one on the dispatcher path would
// stall unrelated command handling for the duration of the call. The
// pool makes the boundary explicit: a handler submits an operation and
// awaits a one-shot result channel, the operation executes on one of a
// fixed set of worker goroutines, and the result (or a recovered panic,
// as ErrWorkerAborted) is handed back.
//
// The boundary is deliberately message-passing rather than a bare `go`
// statement: the suspension point, the absence of per-operation
// cancellation, and the bounded worker count are all visible in the
// API.
package offload
