package ring

import "sync/atomic"

// SPSC is a bounded single-producer, single-consumer ring.
// Capacity must be a power of two (1<<k).
type SPSC[T any] struct {
	_        [64]byte
	mask     uint64
	capacity uint64
	slots    []slot[T]
	_        [64]byte
	enqueue  atomic.Uint64 // logical "tail", written by the producer only
	_        [64]byte
	dequeue  atomic.Uint64 // logical "head", written by the consumer only
	_        [64]byte
}

// NewSPSC creates a new bounded ring.
func NewSPSC[T any](capacity uint64) *SPSC[T] {
	return &SPSC[T]{
		mask:     capacity - 1,
		capacity: capacity,
		slots:    newSlots[T](capacity),
	}
}

// Enqueue pushes an element into the ring.
// Returns false if the ring is full.
// IMPORTANT: must be called from a single producer goroutine.
func (q *SPSC[T]) Enqueue(v T) bool {
	pos := q.enqueue.Load()
	s := &q.slots[pos&q.mask]

	if s.seq.Load() != pos {
		// consumer has not freed this slot yet
		return false
	}

	s.val = v
	// publish the value: seq = pos+1
	s.seq.Store(pos + 1)
	q.enqueue.Store(pos + 1)
	return true
}

// Dequeue pops an element from the ring.
// Returns (zero, false) if the ring is empty.
// IMPORTANT: must be called from a single consumer goroutine.
func (q *SPSC[T]) Dequeue() (T, bool) {
	var zero T

	pos := q.dequeue.Load()
	s := &q.slots[pos&q.mask]

	if s.seq.Load() != pos+1 {
		return zero, false
	}

	v := s.val
	s.val = zero
	// free the slot for the next cycle
	s.seq.Store(pos + q.capacity)
	q.dequeue.Store(pos + 1)
	return v, true
}

// Peek returns the element Dequeue would return without removing it.
// IMPORTANT: must be called from the consumer goroutine.
func (q *SPSC[T]) Peek() (T, bool) {
	pos := q.dequeue.Load()
	s := &q.slots[pos&q.mask]
	if s.seq.Load() != pos+1 {
		var zero T
		return zero, false
	}
	return s.val, true
}

// SizeApprox returns the number of queued elements. It is exact only when
// neither side is active.
func (q *SPSC[T]) SizeApprox() int {
	return approx(q.enqueue.Load(), q.dequeue.Load())
}

// Capacity returns the fixed ring capacity.
func (q *SPSC[T]) Capacity() uint64 {
	return q.capacity
}
