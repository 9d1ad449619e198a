package queue

import (
	"sync"
	"sync/atomic"

	"github.com/aradilov/reactq/slots"
)

type box[T any] struct {
	mu       sync.Mutex
	items    []T
	released atomic.Bool
}

// Locking is a processor whose pushers each append to a slice behind their
// own mutex. MakePusher may be called from any goroutine; ProcessAll from
// the consumer only.
type Locking[T any] struct {
	mu       sync.Mutex // guards store
	store    *slots.Store[*box[T]]
	spare    []*box[T]
	cfg      *options
	metrics  *metrics
	draining reentry
}

// NewLocking creates an empty processor.
func NewLocking[T any](opts ...Option) (*Locking[T], error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	m, err := newMetrics(cfg, "locking")
	if err != nil {
		return nil, err
	}
	return &Locking[T]{
		store:   slots.New[*box[T]](slots.WithLogger[*box[T]](cfg.logger)),
		cfg:     cfg,
		metrics: m,
	}, nil
}

// MakePusher registers a new pusher.
func (p *Locking[T]) MakePusher() *LockingPusher[T] {
	b := &box[T]{}
	p.mu.Lock()
	h := p.store.Acquire(b)
	p.mu.Unlock()
	return &LockingPusher[T]{proc: p, box: b, handle: h}
}

// Len returns the number of live pushers.
func (p *Locking[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.Len()
}

// Stats returns a snapshot of the processor's counters.
func (p *Locking[T]) Stats() Stats {
	return p.metrics.stats()
}

// ProcessAll takes every pusher's queued tasks and hands them to fn without
// holding any lock, so fn may push again; those pushes run on the next call.
func (p *Locking[T]) ProcessAll(fn func(T)) int {
	p.draining.enter()
	defer p.draining.exit()

	p.mu.Lock()
	boxes := p.spare[:0]
	p.store.Visit(func(_ slots.Handle, b **box[T]) {
		boxes = append(boxes, *b)
	})
	p.mu.Unlock()

	var d drainCount
	for _, b := range boxes {
		b.mu.Lock()
		items := b.items
		b.items = nil
		b.mu.Unlock()

		for i := range items {
			if b.released.Load() {
				d.skipped += len(items) - i
				break
			}
			d.processed++
			fn(items[i])
		}
	}

	clear(boxes)
	p.spare = boxes[:0]

	p.metrics.drained(d.processed, d.skipped, 0)
	return d.processed
}

// LockingPusher is a producer handle of a Locking processor. It is safe for
// concurrent use.
type LockingPusher[T any] struct {
	proc   *Locking[T]
	box    *box[T]
	handle slots.Handle
}

// Push queues v. It returns false once the pusher is released.
func (lp *LockingPusher[T]) Push(v T) bool {
	b := lp.box
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released.Load() {
		return false
	}
	b.items = append(b.items, v)
	return true
}

// Release drops the pusher's queued tasks and unregisters it. Safe from any
// goroutine, including from a task; repeated calls are no-ops.
func (lp *LockingPusher[T]) Release() {
	b := lp.box
	b.mu.Lock()
	if b.released.Swap(true) {
		b.mu.Unlock()
		return
	}
	dropped := len(b.items)
	b.items = nil
	b.mu.Unlock()

	p := lp.proc
	p.mu.Lock()
	p.store.Release(lp.handle)
	p.mu.Unlock()

	if dropped > 0 {
		p.metrics.drained(0, dropped, 0)
		p.cfg.logger.Debug().
			Int("dropped", dropped).
			Log("queue: released pusher with queued tasks")
	}
}
