package slots

import (
	"github.com/aradilov/reactq/internal/grow"
	"github.com/joeycumines/logiface"
)

// Option configures a Store.
type Option[T any] func(*Store[T])

// WithInitialCapacity preallocates n cells.
func WithInitialCapacity[T any](n int) Option[T] {
	return func(s *Store[T]) {
		if n > 0 {
			s.cells = make([]cell[T], n)
		}
	}
}

// WithGrowth sets the policy used when no free cell is left.
// The default doubles the required size.
func WithGrowth[T any](p grow.Policy) Option[T] {
	return func(s *Store[T]) {
		if p != nil {
			s.growth = p
		}
	}
}

// WithReleaseHook registers fn to run each time a release is applied, after
// the cell was cleared. fn may release other handles.
func WithReleaseHook[T any](fn func(Handle, T)) Option[T] {
	return func(s *Store[T]) {
		s.onRelease = fn
	}
}

// WithLogger attaches a logger; nil disables logging.
func WithLogger[T any](logger *logiface.Logger[logiface.Event]) Option[T] {
	return func(s *Store[T]) {
		s.logger = logger
	}
}
