package queue

import (
	"fmt"
	"slices"

	"github.com/aradilov/reactq/slots"
)

// batch holds plain tasks in push order followed by indexed tasks in order
// of first push. An index appears at most once.
type batch[T any] struct {
	plain   []T
	indexed []T
	pos     map[int]int // index -> position in indexed
}

func (b *batch[T]) push(v T) int {
	b.plain = append(b.plain, v)
	return 1
}

// pushIndexed replaces the payload of a pending index instead of queueing it
// again, returning the number of tasks added. The newest payload wins; the
// one pushed first is discarded.
func (b *batch[T]) pushIndexed(i int, v T) int {
	if at, ok := b.pos[i]; ok {
		b.indexed[at] = v
		return 0
	}
	if b.pos == nil {
		b.pos = make(map[int]int)
	}
	b.pos[i] = len(b.indexed)
	b.indexed = append(b.indexed, v)
	return 1
}

func (b *batch[T]) len() int {
	return len(b.plain) + len(b.indexed)
}

// run hands tasks to fn until stop reports true and returns how many ran.
func (b *batch[T]) run(fn func(T), stop func() bool) int {
	var n int
	for _, list := range [...][]T{b.plain, b.indexed} {
		for i := range list {
			if stop() {
				return n
			}
			fn(list[i])
			n++
		}
	}
	return n
}

// reset empties b keeping its capacity and returns how many tasks it held.
func (b *batch[T]) reset() int {
	n := b.len()
	clear(b.plain)
	clear(b.indexed)
	b.plain = b.plain[:0]
	b.indexed = b.indexed[:0]
	clear(b.pos)
	return n
}

type serialSlot[T any] struct {
	tasks batch[T]
	// deferred collects pushes made while tasks is being run
	deferred   batch[T]
	processing bool
	busy       bool
	released   bool
}

func (s *serialSlot[T]) empty() bool {
	return s.tasks.len()+s.deferred.len() == 0
}

func (s *serialSlot[T]) target() *batch[T] {
	if s.processing {
		return &s.deferred
	}
	return &s.tasks
}

// process runs the slot's current batch and swaps in what was pushed
// meanwhile. It returns the tasks run and the tasks dropped because the slot
// was released mid-run.
func (s *serialSlot[T]) process(fn func(T)) (ran, dropped int) {
	s.processing = true
	ran = s.tasks.run(fn, func() bool { return s.released })
	s.processing = false

	dropped = s.tasks.reset() - ran
	if s.released {
		dropped += s.deferred.reset()
		return ran, dropped
	}
	s.tasks, s.deferred = s.deferred, s.tasks
	return ran, dropped
}

// Serial is a single-goroutine processor that preserves push order within a
// pusher and coalesces indexed pushes. ProcessAll keeps draining until no
// tasks remain, including tasks pushed by the tasks it runs.
type Serial[T any] struct {
	store    *slots.Store[*serialSlot[T]]
	busy     []slots.Handle
	scratch  []slots.Handle
	total    int
	cfg      *options
	metrics  *metrics
	draining reentry
}

// NewSerial creates an empty processor.
func NewSerial[T any](opts ...Option) (*Serial[T], error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	m, err := newMetrics(cfg, "serial")
	if err != nil {
		return nil, err
	}
	return &Serial[T]{
		store:   slots.New[*serialSlot[T]](slots.WithLogger[*serialSlot[T]](cfg.logger)),
		cfg:     cfg,
		metrics: m,
	}, nil
}

// MakePusher registers a new pusher.
func (p *Serial[T]) MakePusher() *SerialPusher[T] {
	s := &serialSlot[T]{}
	return &SerialPusher[T]{proc: p, slot: s, handle: p.store.Acquire(s)}
}

// Pending returns the number of queued tasks across all pushers.
func (p *Serial[T]) Pending() int {
	return p.total
}

// Len returns the number of live pushers.
func (p *Serial[T]) Len() int {
	return p.store.Len()
}

// Stats returns a snapshot of the processor's counters.
func (p *Serial[T]) Stats() Stats {
	return p.metrics.stats()
}

// ProcessAll runs queued tasks, slot by slot, until none remain.
func (p *Serial[T]) ProcessAll(fn func(T)) int {
	p.draining.enter()
	defer p.draining.exit()

	var ran, dropped int
	p.store.Guard(func() {
		for p.total > 0 {
			var progress int
			p.scratch = append(p.scratch[:0], p.busy...)
			for _, h := range p.scratch {
				s := *p.store.Get(h)
				if s.released || s.empty() {
					continue
				}
				r, d := s.process(fn)
				ran += r
				dropped += d
				progress += r + d
				p.total -= r + d
				if p.total == 0 {
					break
				}
			}
			if progress == 0 {
				panic(fmt.Errorf("queue: %d tasks pending on no busy pusher", p.total))
			}
		}
	})

	for _, h := range p.busy {
		(*p.store.Get(h)).busy = false
	}
	clear(p.scratch)
	p.busy = p.busy[:0]

	p.metrics.drained(ran, dropped, 0)
	return ran
}

func (p *Serial[T]) pushed(sp *SerialPusher[T], n int) {
	if n == 0 {
		return
	}
	p.total += n
	if s := sp.slot; !s.busy {
		s.busy = true
		p.busy = append(p.busy, sp.handle)
	}
}

func (p *Serial[T]) release(sp *SerialPusher[T]) {
	s := sp.slot
	s.released = true

	// a slot being run drops its remaining tasks once its run stops
	var dropped int
	if s.processing {
		dropped = s.deferred.reset()
	} else {
		dropped = s.tasks.reset() + s.deferred.reset()
	}
	p.total -= dropped

	if i := slices.Index(p.busy, sp.handle); i >= 0 {
		p.busy = slices.Delete(p.busy, i, i+1)
	}
	p.store.Release(sp.handle)

	if dropped > 0 {
		p.metrics.drained(0, dropped, 0)
		p.cfg.logger.Debug().
			Int("dropped", dropped).
			Log("queue: released pusher with queued tasks")
	}
}

// SerialPusher is a producer handle of a Serial processor.
type SerialPusher[T any] struct {
	proc   *Serial[T]
	slot   *serialSlot[T]
	handle slots.Handle
	mapped map[int]T
}

// Push queues v. It is a no-op after Release.
func (sp *SerialPusher[T]) Push(v T) {
	if sp.proc == nil {
		return
	}
	sp.proc.pushed(sp, sp.slot.target().push(v))
}

// PushIndexed queues v under index i. If a task for i is already waiting,
// its payload is replaced by v and it still runs once, in the position of
// the first push. This is last-wins coalescing: the earlier payload is
// dropped, not kept.
func (sp *SerialPusher[T]) PushIndexed(i int, v T) {
	if sp.proc == nil {
		return
	}
	sp.proc.pushed(sp, sp.slot.target().pushIndexed(i, v))
}

// Map registers v as the payload pushed by PushMapped(i).
func (sp *SerialPusher[T]) Map(i int, v T) {
	if sp.mapped == nil {
		sp.mapped = make(map[int]T)
	}
	sp.mapped[i] = v
}

// PushMapped is PushIndexed with the payload registered by Map. It panics
// with an error wrapping ErrUnmapped if i was never mapped.
func (sp *SerialPusher[T]) PushMapped(i int) {
	v, ok := sp.mapped[i]
	if !ok {
		panic(fmt.Errorf("%w: %d", ErrUnmapped, i))
	}
	sp.PushIndexed(i, v)
}

// Trigger returns a func calling PushMapped(i), suitable as a signal
// callback.
func (sp *SerialPusher[T]) Trigger(i int) func() {
	return func() {
		sp.PushMapped(i)
	}
}

// Release drops the pusher's queued tasks and unregisters it. Called while
// the pusher's own tasks are running, the remaining tasks are dropped when
// the running one returns. Repeated calls are no-ops.
func (sp *SerialPusher[T]) Release() {
	if sp.proc == nil {
		return
	}
	p := sp.proc
	sp.proc = nil
	p.release(sp)
}
