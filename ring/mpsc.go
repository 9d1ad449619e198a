package ring

import (
	"runtime"
	"sync/atomic"
)

// MPSC is a bounded multi-producer, single-consumer ring.
// Capacity must be a power of two (1<<k).
type MPSC[T any] struct {
	// Optional padding to avoid false sharing between frequently accessed fields
	_        [64]byte
	mask     uint64
	capacity uint64
	slots    []slot[T]
	_        [64]byte
	enqueue  atomic.Uint64 // logical "tail", updated by multiple producers
	_        [64]byte
	dequeue  atomic.Uint64 // logical "head", updated by a single consumer
	_        [64]byte
}

// NewMPSC creates a new bounded ring.
func NewMPSC[T any](capacity uint64) *MPSC[T] {
	return &MPSC[T]{
		mask:     capacity - 1,
		capacity: capacity,
		slots:    newSlots[T](capacity),
	}
}

// Enqueue pushes an element into the ring.
// Returns false if the ring is full (overflow).
// May be called concurrently from many goroutines (producers).
func (q *MPSC[T]) Enqueue(v T) bool {
	var spins uint32
	for {
		pos := q.enqueue.Load()
		s := &q.slots[pos&q.mask]

		seq := s.seq.Load()
		diff := int64(seq) - int64(pos)

		if diff == 0 {
			// slot is free for this position, try to reserve it
			if q.enqueue.CompareAndSwap(pos, pos+1) {
				s.val = v
				// publish the value: seq = pos+1
				s.seq.Store(pos + 1)
				return true
			}
		} else if diff < 0 {
			// slot has not been freed by the consumer yet
			// => ring is full
			return false
		}
		// contention, or the slot still belongs to a previous cycle
		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
	}
}

// Dequeue pops an element from the ring.
// Returns (zero, false) if the ring is empty or the next producer is still
// publishing.
// IMPORTANT: must be called from a single consumer goroutine.
func (q *MPSC[T]) Dequeue() (T, bool) {
	var zero T

	pos := q.dequeue.Load()
	s := &q.slots[pos&q.mask]

	seq := s.seq.Load()
	if diff := int64(seq) - int64(pos+1); diff != 0 {
		// diff < 0 => ring is logically empty
		// diff > 0 => producer is not done yet
		return zero, false
	}

	v := s.val
	s.val = zero
	// next time this physical slot will be used at pos+capacity
	s.seq.Store(pos + q.capacity)
	q.dequeue.Store(pos + 1)
	return v, true
}

// SizeApprox returns the number of reserved elements, including ones that are
// still being published.
func (q *MPSC[T]) SizeApprox() int {
	return approx(q.enqueue.Load(), q.dequeue.Load())
}

// Capacity returns the fixed ring capacity.
func (q *MPSC[T]) Capacity() uint64 {
	return q.capacity
}
