package ring

import (
	"sync"
	"sync/atomic"
)

// Spill is an unbounded, mutex-guarded overflow buffer sitting behind a ring.
// Push may be called from any goroutine, Drain from the consumer only.
type Spill[T any] struct {
	mu      sync.Mutex
	items   []T
	pending atomic.Bool // fast-path check that avoids the mutex when empty
}

// Push appends v.
func (s *Spill[T]) Push(v T) {
	s.mu.Lock()
	s.items = append(s.items, v)
	s.pending.Store(true)
	s.mu.Unlock()
}

// Pending reports whether anything is buffered.
func (s *Spill[T]) Pending() bool {
	return s.pending.Load()
}

// Len returns the number of buffered elements.
func (s *Spill[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Drain takes everything buffered so far and hands each element to fn
// without holding the lock, so fn may push again. Returns the count.
func (s *Spill[T]) Drain(fn func(T)) int {
	if !s.pending.Load() {
		return 0
	}

	s.mu.Lock()
	items := s.items
	s.items = nil
	s.pending.Store(false)
	s.mu.Unlock()

	for i := range items {
		fn(items[i])
	}
	return len(items)
}
