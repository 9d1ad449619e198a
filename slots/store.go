package slots

import (
	"fmt"
	"slices"

	"github.com/aradilov/reactq/internal/grow"
	"github.com/aradilov/reactq/internal/sorted"
	"github.com/joeycumines/logiface"
)

// Handle names a cell of a Store.
type Handle int

// Invalid is never returned by Acquire.
const Invalid Handle = -1

type cell[T any] struct {
	value T
	used  bool
}

// Store is a growable array of cells addressed by Handle.
type Store[T any] struct {
	cells     []cell[T]
	current   sorted.Set // occupied indices, used for iteration only
	pending   []Handle   // releases deferred until the store is idle
	next      int        // lowest index that may be free
	depth     int        // nesting of Visit/Guard
	flushing  bool
	growth    grow.Policy
	onRelease func(Handle, T)
	logger    *logiface.Logger[logiface.Event]
}

// New creates an empty store.
func New[T any](opts ...Option[T]) *Store[T] {
	s := &Store[T]{growth: grow.Doubling}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Acquire stores v in the lowest free cell and returns its handle.
func (s *Store[T]) Acquire(v T) Handle {
	idx := s.nextFree()
	if idx >= len(s.cells) {
		s.growTo(idx + 1)
	}
	s.cells[idx] = cell[T]{value: v, used: true}
	s.current.MustInsert(idx)
	return Handle(idx)
}

// Release frees the cell named by h. While the store is visiting, the release
// is deferred until the outermost visit returns.
func (s *Store[T]) Release(h Handle) {
	s.mustBeLive(h)
	if slices.Contains(s.pending, h) {
		panic(fmt.Errorf("%w: %d", ErrDoubleRelease, h))
	}
	s.pending = append(s.pending, h)
	if s.depth > 0 || s.flushing {
		return
	}
	s.flush()
}

// Get returns a pointer to the value stored under h. The pointer is valid
// until the next Acquire, which may move the backing array.
func (s *Store[T]) Get(h Handle) *T {
	s.mustBeLive(h)
	return &s.cells[h].value
}

// Contains reports whether h names an occupied cell, including one whose
// release is still deferred.
func (s *Store[T]) Contains(h Handle) bool {
	return h >= 0 && int(h) < len(s.cells) && s.cells[h].used
}

// Visit calls fn for every handle occupied when Visit was called, in index
// order. Handles acquired during the visit are not visited; handles released
// during the visit are still visited and are freed once the visit returns.
func (s *Store[T]) Visit(fn func(Handle, *T)) {
	s.enter()
	defer s.exit()

	for _, idx := range s.current.Clone() {
		fn(Handle(idx), &s.cells[idx].value)
	}
}

// Guard runs fn with every release deferred until fn returns.
func (s *Store[T]) Guard(fn func()) {
	s.enter()
	defer s.exit()
	fn()
}

// Visiting reports whether a Visit or Guard is in progress.
func (s *Store[T]) Visiting() bool {
	return s.depth > 0
}

// ActiveHandles returns a snapshot of the occupied handles, in index order.
func (s *Store[T]) ActiveHandles() []Handle {
	out := make([]Handle, len(s.current))
	for i, idx := range s.current {
		out[i] = Handle(idx)
	}
	return out
}

// Len returns the number of occupied cells.
func (s *Store[T]) Len() int {
	return len(s.current)
}

// Cap returns the number of allocated cells.
func (s *Store[T]) Cap() int {
	return len(s.cells)
}

func (s *Store[T]) enter() {
	s.depth++
}

func (s *Store[T]) exit() {
	s.depth--
	if s.depth == 0 && !s.flushing && len(s.pending) > 0 {
		s.flush()
	}
}

// flush applies deferred releases until none are left. Release hooks may
// queue more.
func (s *Store[T]) flush() {
	s.flushing = true
	defer func() { s.flushing = false }()

	for len(s.pending) > 0 {
		h := s.pending[0]
		s.pending = s.pending[1:]
		s.apply(h)
	}
	s.pending = nil
}

func (s *Store[T]) apply(h Handle) {
	idx := int(h)
	v := s.cells[idx].value
	s.cells[idx] = cell[T]{}
	s.current.MustErase(idx)
	if idx < s.next {
		s.next = idx
	}
	if s.onRelease != nil {
		s.onRelease(h, v)
	}
}

func (s *Store[T]) nextFree() int {
	out := s.next
	s.next++
	for s.next < len(s.cells) && s.cells[s.next].used {
		s.next++
	}
	return out
}

func (s *Store[T]) growTo(required int) {
	n := grow.Resolve(s.growth, len(s.cells), required)
	s.cells = append(s.cells, make([]cell[T], n-len(s.cells))...)
	s.logger.Debug().
		Int("cells", n).
		Int("occupied", len(s.current)).
		Log("slots: grew store")
}

func (s *Store[T]) mustBeLive(h Handle) {
	if !s.Contains(h) {
		panic(fmt.Errorf("%w: %d", ErrInvalidHandle, h))
	}
}
