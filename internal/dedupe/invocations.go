// ABOUTME: Thread-safe TTL cache for deduplicating command invocations.
// ABOUTME: Keys combine event id and body so edits re-run while redeliveries drop.

package dedupe

import (
	"container/list"
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

// Key builds an invocation key from a message event id and its body.
// A redelivered event produces the same key and is dropped; an edit of
// the same event changes the body hash and runs again.
func Key(eventID, body string) string {
	h := fnv.New64a()
	h.Write([]byte(body))
	return fmt.Sprintf("%s:%x", eventID, h.Sum64())
}

// trackerEntry stores the timestamp and list element for a cached key.
type trackerEntry struct {
	timestamp time.Time
	element   *list.Element
}

// Tracker remembers which command invocations have already executed
// within the edit window. It is size-limited: when full, the oldest
// invocation is evicted. A doubly-linked list maintains insertion order
// for O(1) eviction.
type Tracker struct {
	mu      sync.Mutex
	seen    map[string]*trackerEntry
	order   *list.List // keys in insertion order, oldest at front
	window  time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// NewTracker creates a tracker that remembers invocations for the given
// window, holding at most maxSize entries. A background goroutine
// periodically sweeps expired entries.
func NewTracker(window time.Duration, maxSize int) *Tracker {
	tr := &Tracker{
		seen:    make(map[string]*trackerEntry),
		order:   list.New(),
		window:  window,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go tr.sweepLoop()
	return tr
}

// CheckAndMark atomically checks whether the invocation already ran and
// marks it if not. Returns true if it was already seen within the
// window (the handler must skip it), false if it is new and now marked.
func (tr *Tracker) CheckAndMark(key string) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	entry, ok := tr.seen[key]
	if ok && time.Since(entry.timestamp) < tr.window {
		return true
	}

	tr.markLocked(key)
	return false
}

// markLocked records the key. Must be called with mu held.
func (tr *Tracker) markLocked(key string) {
	now := time.Now()

	if entry, exists := tr.seen[key]; exists {
		entry.timestamp = now
		tr.order.MoveToBack(entry.element)
		return
	}

	if len(tr.seen) >= tr.maxSize {
		tr.evictOldest()
	}

	elem := tr.order.PushBack(key)
	tr.seen[key] = &trackerEntry{
		timestamp: now,
		element:   elem,
	}
}

// evictOldest removes the oldest entry. Must be called with mu held.
func (tr *Tracker) evictOldest() {
	front := tr.order.Front()
	if front == nil {
		return
	}

	key, _ := front.Value.(string)
	tr.order.Remove(front)
	delete(tr.seen, key)
}

// sweepLoop periodically removes expired entries.
func (tr *Tracker) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tr.sweep()
		case <-tr.done:
			return
		}
	}
}

func (tr *Tracker) sweep() {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	now := time.Now()
	for key, entry := range tr.seen {
		if now.Sub(entry.timestamp) > tr.window {
			tr.order.Remove(entry.element)
			delete(tr.seen, key)
		}
	}
}

// Close stops the background sweep goroutine. Safe to call multiple times.
func (tr *Tracker) Close() {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if !tr.closed {
		close(tr.done)
		tr.closed = true
	}
}
