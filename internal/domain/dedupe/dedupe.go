// Package dedupe tracks keys that are currently being worked on so the same
// key is not processed twice at once.
package dedupe

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Sentinel kinds for tracker errors.
var (
	ErrInFlight = errors.New("key already in flight")
	ErrFull     = errors.New("in-flight tracker is full")
)

// Tracker records in-flight keys.
type Tracker interface {
	// Acquire marks key as in flight. It fails with ErrInFlight when key is
	// already held and with ErrFull when the tracker is at capacity.
	Acquire(ctx context.Context, key string) error

	// Release clears key. Releasing an unknown key is a no-op.
	Release(ctx context.Context, key string)

	// Held reports whether key is in flight.
	Held(ctx context.Context, key string) bool

	Size() int64
}

// inMemoryTracker implements Tracker with a map guarded by a mutex.
// maxSize <= 0 means unbounded.
type inMemoryTracker struct {
	mu      sync.Mutex
	held    map[string]struct{}
	maxSize int
	size    atomic.Int64
}

// NewInMemoryTracker creates a tracker with configuration options.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.held = make(map[string]struct{})
	return t
}

func (t *inMemoryTracker) Acquire(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.held[key]; ok {
		return ErrInFlight
	}
	if t.maxSize > 0 && len(t.held) >= t.maxSize {
		return ErrFull
	}
	t.held[key] = struct{}{}
	t.size.Add(1)
	return nil
}

func (t *inMemoryTracker) Release(_ context.Context, key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.held[key]; ok {
		delete(t.held, key)
		t.size.Add(-1)
	}
}

func (t *inMemoryTracker) Held(_ context.Context, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.held[key]
	return ok
}

// Size returns the number of keys in flight.
func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
