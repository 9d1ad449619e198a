// Package ring provides the bounded lock-free buffers the lock-free processor
// is built on: SPSC rings for pusher queues, an MPSC ring for tombstones, and a
// mutex-guarded Spill for overflow.
package ring

import "sync/atomic"

// Original algorithm by Dmitry Vyukov
// https://www.1024cores.net/home/lock-free-algorithms/queues/bounded-mpmc-queue

const goschedEvery = 64 // reduce runtime.Gosched() frequency in hot loops

type slot[T any] struct {
	seq atomic.Uint64 // sequence number (controls visibility and slot ownership)
	val T             // actual value stored in this slot
}

func newSlots[T any](capacity uint64) []slot[T] {
	if capacity == 0 || (capacity&(capacity-1)) != 0 {
		panic("capacity must be power of 2 and > 0")
	}
	slots := make([]slot[T], capacity)
	for i := uint64(0); i < capacity; i++ {
		// initial sequence for each slot matches its index
		slots[i].seq.Store(i)
	}
	return slots
}

func approx(tail, head uint64) int {
	if tail < head {
		return 0
	}
	return int(tail - head)
}
