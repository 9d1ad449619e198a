package queue

import (
	"fmt"
	"maps"
	"sync/atomic"

	"github.com/aradilov/reactq/internal/grow"
	"github.com/aradilov/reactq/ring"
	"github.com/aradilov/reactq/slots"
	"github.com/valyala/fastrand"
)

// tagged is a queued value, its position in the pusher's sequence, and the
// id of the dynamic pusher that pushed it, or zero for the static pusher
// itself.
type tagged[T any] struct {
	seq   uint64
	owner uint64
	val   T
}

// lane is the state shared by a static Pusher and the consumer.
type lane[T any] struct {
	active atomic.Pointer[ring.SPSC[tagged[T]]]
	// retired is the ring replaced by the last growth, kept until it is
	// empty and the producer has been seen outside a push. Consumer only.
	retired  *ring.SPSC[tagged[T]]
	overflow ring.Spill[tagged[T]]
	// backlog holds tasks taken out of overflow that are not due yet.
	// Consumer only.
	backlog  []tagged[T]
	pushing  atomic.Bool
	released atomic.Bool
	// seq numbers the producer's tasks. Producer only.
	seq uint64
	// published counts the tasks placed in a ring or in overflow.
	published atomic.Uint64
	// next is the seq of the next task to run. Consumer only.
	next uint64
	// clean is the last drain pass that ran everything published when the
	// lane was drained. Consumer only.
	clean uint64
}

func (l *lane[T]) publish() {
	l.seq++
	l.published.Store(l.seq)
}

// take removes the task numbered next from whichever buffer holds it. Every
// buffer is FIFO, so a due task is always at the head of one of them.
func (l *lane[T]) take() (e tagged[T], spilled, ok bool) {
	for _, r := range [...]*ring.SPSC[tagged[T]]{l.retired, l.active.Load()} {
		if r == nil {
			continue
		}
		if head, found := r.Peek(); found && head.seq == l.next {
			r.Dequeue()
			return head, false, true
		}
	}

	if len(l.backlog) == 0 {
		l.overflow.Drain(func(v tagged[T]) {
			l.backlog = append(l.backlog, v)
		})
	}
	if len(l.backlog) > 0 && l.backlog[0].seq == l.next {
		e = l.backlog[0]
		l.backlog[0] = tagged[T]{}
		l.backlog = l.backlog[1:]
		return e, true, true
	}
	return e, false, false
}

// LockFree is a processor whose producers never lock or allocate on the
// common path. Every method except the pushers' is for the consumer
// goroutine only.
type LockFree[T any] struct {
	store      *slots.Store[*lane[T]]
	tombstones *ring.MPSC[uint64]
	graveyard  ring.Spill[uint64]
	dead       map[uint64]uint64 // released dynamic id -> pass it was seen
	pass       uint64
	ids        atomic.Uint64
	cfg        *options
	metrics    *metrics
	draining   reentry
}

// NewLockFree creates an empty processor.
func NewLockFree[T any](opts ...Option) (*LockFree[T], error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	m, err := newMetrics(cfg, "lockfree")
	if err != nil {
		return nil, err
	}
	return &LockFree[T]{
		store:      slots.New[*lane[T]](slots.WithLogger[*lane[T]](cfg.logger)),
		tombstones: ring.NewMPSC[uint64](uint64(cfg.tombstoneCapacity)),
		dead:       make(map[uint64]uint64),
		cfg:        cfg,
		metrics:    m,
	}, nil
}

// MakePusher registers a static pusher whose ring starts with room for
// initialSize tasks, rounded up to a power of two. Consumer goroutine only.
func (p *LockFree[T]) MakePusher(initialSize int) *Pusher[T] {
	l := &lane[T]{clean: p.pass}
	l.active.Store(ring.NewSPSC[tagged[T]](uint64(grow.NextPow2(initialSize))))
	p.store.Acquire(l)
	return &Pusher[T]{proc: p, lane: l}
}

// Len returns the number of registered static pushers, including released
// ones the consumer has not reclaimed yet.
func (p *LockFree[T]) Len() int {
	return p.store.Len()
}

// Stats returns a snapshot of the processor's counters.
func (p *LockFree[T]) Stats() Stats {
	return p.metrics.stats()
}

// ProcessAll runs every task visible when the call starts, handing each to
// fn, and returns how many ran. Tasks of released pushers are dropped.
func (p *LockFree[T]) ProcessAll(fn func(T)) int {
	p.draining.enter()
	defer p.draining.exit()

	p.pass++
	p.collectTombstones(p.pass)

	var d drainCount
	handles := p.store.ActiveHandles()
	p.store.Guard(func() {
		n := len(handles)
		if n == 0 {
			return
		}
		start := int(fastrand.Uint32n(uint32(n)))
		for i := range n {
			h := handles[(start+i)%n]
			l := *p.store.Get(h)
			if l.released.Load() {
				d.skipped += p.discard(l)
				p.store.Release(h)
				continue
			}
			p.drainLane(l, fn, &d)
		}
	})
	p.forgetTombstones()

	p.metrics.drained(d.processed, d.skipped, d.spilled)
	if d.spilled > 0 {
		p.cfg.logger.Warning().
			Int("spilled", d.spilled).
			Log("queue: tasks overflowed their ring")
	}
	if d.skipped > 0 {
		p.cfg.logger.Debug().
			Int("skipped", d.skipped).
			Log("queue: dropped tasks of released pushers")
	}
	return d.processed
}

// collectTombstones marks released dynamic ids dead as of pass seen. Ids
// collected mid-pass are marked for the next pass, since lanes drained
// earlier in this one did not account for them.
func (p *LockFree[T]) collectTombstones(seen uint64) {
	for {
		id, ok := p.tombstones.Dequeue()
		if !ok {
			break
		}
		p.dead[id] = seen
	}
	p.graveyard.Drain(func(id uint64) {
		p.dead[id] = seen
	})
}

// forgetTombstones drops dead ids once no lane can still hold their tasks:
// every lane has been left clean on or after the pass the id was seen.
func (p *LockFree[T]) forgetTombstones() {
	if len(p.dead) == 0 {
		return
	}
	horizon := p.pass
	p.store.Visit(func(_ slots.Handle, l **lane[T]) {
		horizon = min(horizon, (*l).clean)
	})
	maps.DeleteFunc(p.dead, func(_ uint64, seen uint64) bool {
		return seen <= horizon
	})
}

// drainLane runs the lane's tasks in push order, up to what was published
// when it started, so a task pushing to its own pusher cannot keep the drain
// going forever. It stops as soon as the pusher is released.
func (p *LockFree[T]) drainLane(l *lane[T], fn func(T), d *drainCount) {
	if p.cfg.allocation == AllocateOnProcess && l.retired == nil {
		if active := l.active.Load(); active.SizeApprox()*2 > int(active.Capacity()) {
			next := ring.NewSPSC[tagged[T]](active.Capacity() * 2)
			l.active.Store(next)
			l.retired = active
			p.metrics.grew()
			p.cfg.logger.Debug().
				Int("capacity", int(next.Capacity())).
				Log("queue: grew ring")
		}
	}

	// a producer outside a push now has published everything it put in
	// the retired ring
	quiet := !l.pushing.Load()
	limit := l.published.Load()
	for l.next < limit {
		if l.released.Load() {
			return
		}
		e, spilled, ok := l.take()
		if !ok {
			return
		}
		l.next++
		if spilled {
			d.spilled++
		}
		p.run(e, fn, d)
	}

	l.clean = p.pass
	if r := l.retired; r != nil && quiet && r.SizeApprox() == 0 {
		l.retired = nil
	}
}

func (p *LockFree[T]) run(e tagged[T], fn func(T), d *drainCount) {
	if e.owner != 0 {
		if p.tombstones.SizeApprox() > 0 || p.graveyard.Pending() {
			p.collectTombstones(p.pass + 1)
		}
		if _, dead := p.dead[e.owner]; dead {
			d.skipped++
			return
		}
	}
	d.processed++
	fn(e.val)
}

func (p *LockFree[T]) discard(l *lane[T]) int {
	var n int
	for _, r := range [...]*ring.SPSC[tagged[T]]{l.retired, l.active.Load()} {
		if r == nil {
			continue
		}
		for {
			if _, ok := r.Dequeue(); !ok {
				break
			}
			n++
		}
	}
	l.retired = nil
	n += len(l.backlog)
	l.backlog = nil
	n += l.overflow.Drain(func(tagged[T]) {})
	return n
}

func (p *LockFree[T]) bury(id uint64) {
	if !p.tombstones.Enqueue(id) {
		p.graveyard.Push(id)
	}
}

// Pusher is a static producer handle of a LockFree processor. Push and
// Dynamic must be called from one goroutine at a time; that goroutine also
// owns every DynamicPusher created from it.
type Pusher[T any] struct {
	proc *LockFree[T]
	lane *lane[T]
}

// Push queues v. It returns false if the pusher was released, or if the
// ring is full under NeverAllocate.
func (p *Pusher[T]) Push(v T) bool {
	return p.push(0, v)
}

func (p *Pusher[T]) push(owner uint64, v T) bool {
	l := p.lane
	if l.released.Load() {
		return false
	}

	e := tagged[T]{seq: l.seq, owner: owner, val: v}
	l.pushing.Store(true)
	r := l.active.Load()
	ok := r.Enqueue(e)
	if ok {
		l.publish()
	}
	l.pushing.Store(false)
	if ok {
		return true
	}

	switch cfg := p.proc.cfg; {
	case cfg.allocation == NeverAllocate:
		p.proc.metrics.reject()
		return false
	case cfg.allocation == AllocateOnProcess && cfg.overflow == OverflowPanic:
		panic(fmt.Errorf("%w: capacity %d", ErrQueueFull, r.Capacity()))
	}
	l.overflow.Push(e)
	l.publish()
	return true
}

// Dynamic returns a short-lived pusher sharing p's ring.
func (p *Pusher[T]) Dynamic() *DynamicPusher[T] {
	return &DynamicPusher[T]{parent: p, id: p.proc.ids.Add(1)}
}

// Release stops the pusher. Queued tasks that have not run are dropped and
// the consumer reclaims the ring on its next ProcessAll. Safe from any
// goroutine; repeated calls are no-ops.
func (p *Pusher[T]) Release() {
	p.lane.released.Store(true)
}

// Released reports whether Release was called.
func (p *Pusher[T]) Released() bool {
	return p.lane.released.Load()
}

// DynamicPusher pushes through its parent's ring, tagging every task with
// its own id.
type DynamicPusher[T any] struct {
	parent   *Pusher[T]
	id       uint64
	released atomic.Bool
}

// ID returns the tag carried by this pusher's tasks.
func (d *DynamicPusher[T]) ID() uint64 {
	return d.id
}

// Push queues v; see Pusher.Push.
func (d *DynamicPusher[T]) Push(v T) bool {
	if d.released.Load() {
		return false
	}
	return d.parent.push(d.id, v)
}

// Release drops every task pushed through d that has not run by the next
// ProcessAll. Safe from any goroutine; repeated calls are no-ops.
func (d *DynamicPusher[T]) Release() {
	if d.released.CompareAndSwap(false, true) {
		d.parent.proc.bury(d.id)
	}
}
