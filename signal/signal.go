// Package signal implements a multicast callback registry on top of a slot
// store.
//
// Connect returns a *Conn; calling Disconnect on it removes the callback.
// Callbacks may connect, disconnect (themselves or others), emit again, or
// close the registry while an Emit is running. Removals made during an Emit
// take effect when it returns; a callback removed before its turn in the
// current pass is skipped, one that removes itself has already run.
//
// A Signal and its connections must be used from a single goroutine.
package signal

import (
	"errors"

	"github.com/aradilov/reactq/slots"
	"github.com/joeycumines/logiface"
)

// ErrEmitting is the panic value raised by Move when called from inside an
// Emit of the same registry.
var ErrEmitting = errors.New("signal: registry is emitting")

type disconnecter interface {
	disconnect(h slots.Handle)
}

// link is the connection body shared by a Conn and its registry entry. It
// outlives both: the registry re-points owner on Move and clears it on Close.
type link struct {
	owner  disconnecter
	handle slots.Handle
}

type entry[T any] struct {
	fn   func(T)
	link *link
}

// Signal is a registry of callbacks receiving values of type T.
type Signal[T any] struct {
	store *slots.Store[entry[T]]
	// scratch holds idle copy buffers; nested Emits each take their own.
	scratch [][]entry[T]
	logger  *logiface.Logger[logiface.Event]
	closed  bool
}

// New creates an empty registry.
func New[T any](opts ...Option) *Signal[T] {
	cfg := resolveOptions(opts)
	return &Signal[T]{
		store:  newStore[T](cfg.logger),
		logger: cfg.logger,
	}
}

func newStore[T any](logger *logiface.Logger[logiface.Event]) *slots.Store[entry[T]] {
	return slots.New[entry[T]](slots.WithLogger[entry[T]](logger))
}

// Connect registers fn. Connecting a nil fn, or connecting to a closed
// registry, returns a Conn that is already disconnected.
func (s *Signal[T]) Connect(fn func(T)) *Conn {
	if fn == nil || s.closed {
		return &Conn{}
	}
	l := &link{owner: s}
	l.handle = s.store.Acquire(entry[T]{fn: fn, link: l})
	return &Conn{link: l}
}

func (s *Signal[T]) disconnect(h slots.Handle) {
	s.store.Release(h)
}

// Emit invokes every connected callback with v.
//
// Callbacks are copied out of the registry before any of them runs, so a
// callback may drop the last reference to whatever owns this Signal.
func (s *Signal[T]) Emit(v T) {
	if s.closed || s.store.Len() == 0 {
		return
	}

	s.store.Guard(func() {
		buf := s.getScratch()
		defer func() { s.putScratch(buf) }()

		s.store.Visit(func(_ slots.Handle, e *entry[T]) {
			buf = append(buf, *e)
		})

		for _, e := range buf {
			if e.link.owner == nil {
				continue
			}
			e.fn(v)
		}
	})
}

// Len returns the number of connected callbacks, including ones whose
// removal is pending until the current Emit returns.
func (s *Signal[T]) Len() int {
	return s.store.Len()
}

// Closed reports whether Close was called.
func (s *Signal[T]) Closed() bool {
	return s.closed
}

// Move transfers every connection to a new registry and returns it. Existing
// Conns keep working against the returned registry; s is left empty and
// usable.
func (s *Signal[T]) Move() *Signal[T] {
	if s.store.Visiting() {
		panic(ErrEmitting)
	}
	dst := &Signal[T]{
		store:  s.store,
		logger: s.logger,
		closed: s.closed,
	}
	s.store = newStore[T](s.logger)
	dst.store.Visit(func(_ slots.Handle, e *entry[T]) {
		e.link.owner = dst
	})
	return dst
}

// Close disconnects every callback. Outstanding Conns are detached first, so
// disconnecting them afterwards is a no-op. Closing from inside a callback
// stops the remainder of that Emit.
func (s *Signal[T]) Close() {
	if s.closed {
		return
	}
	s.closed = true

	if n := s.store.Len(); n > 0 {
		s.logger.Debug().
			Int("connections", n).
			Log("signal: closed with live connections")
	}

	s.store.Visit(func(h slots.Handle, e *entry[T]) {
		e.link.owner = nil
		s.store.Release(h)
	})
}

func (s *Signal[T]) getScratch() []entry[T] {
	if n := len(s.scratch); n > 0 {
		buf := s.scratch[n-1]
		s.scratch[n-1] = nil
		s.scratch = s.scratch[:n-1]
		return buf
	}
	return make([]entry[T], 0, s.store.Len())
}

func (s *Signal[T]) putScratch(buf []entry[T]) {
	clear(buf)
	s.scratch = append(s.scratch, buf[:0])
}
