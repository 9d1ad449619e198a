package slots

import (
	"testing"

	"github.com/aradilov/reactq/internal/grow"
	"github.com/aradilov/reactq/internal/logtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values[T any](s *Store[T]) []T {
	var out []T
	s.Visit(func(_ Handle, v *T) { out = append(out, *v) })
	return out
}

func TestStore_ReusesReleasedIndex(t *testing.T) {
	s := New[int]()

	h1 := s.Acquire(10)
	h2 := s.Acquire(20)
	h3 := s.Acquire(30)
	require.NotEqual(t, h1, h2)
	require.NotEqual(t, h2, h3)
	require.NotEqual(t, h1, h3)

	s.Release(h2)
	h4 := s.Acquire(99)
	assert.Equal(t, h2, h4)
	assert.Equal(t, []int{10, 99, 30}, values(s))
}

func TestStore_PrefersLowestFreeIndex(t *testing.T) {
	s := New[string]()
	hs := make([]Handle, 6)
	for i := range hs {
		hs[i] = s.Acquire("v")
	}
	s.Release(hs[4])
	s.Release(hs[1])
	s.Release(hs[3])

	assert.Equal(t, hs[1], s.Acquire("a"))
	assert.Equal(t, hs[3], s.Acquire("b"))
	assert.Equal(t, hs[4], s.Acquire("c"))
	assert.Equal(t, Handle(6), s.Acquire("d"))
}

func TestStore_HandlesSurviveGrowth(t *testing.T) {
	s := New[int](WithGrowth[int](grow.Exact))
	var hs []Handle
	for i := 0; i < 100; i++ {
		hs = append(hs, s.Acquire(i))
	}
	assert.Equal(t, 100, s.Cap())
	for i, h := range hs {
		assert.Equal(t, i, *s.Get(h))
	}
}

func TestStore_NeverAliasesLiveHandles(t *testing.T) {
	s := New[int](WithInitialCapacity[int](4))
	live := map[Handle]int{}
	for i := 0; i < 500; i++ {
		if i%3 == 2 {
			for h := range live {
				s.Release(h)
				delete(live, h)
				break
			}
			continue
		}
		h := s.Acquire(i)
		_, dup := live[h]
		require.False(t, dup, "handle %d handed out twice", h)
		live[h] = i
	}
	for h, v := range live {
		assert.Equal(t, v, *s.Get(h))
	}
	assert.Equal(t, len(live), s.Len())
}

func TestStore_ReleaseDuringVisitIsDeferred(t *testing.T) {
	s := New[int]()
	h1 := s.Acquire(1)
	h2 := s.Acquire(2)
	h3 := s.Acquire(3)

	var seen []int
	s.Visit(func(h Handle, v *int) {
		seen = append(seen, *v)
		if h == h1 {
			s.Release(h2)
			s.Release(h1)
			// still readable and not reusable until the visit ends
			assert.True(t, s.Contains(h2))
			assert.Equal(t, 2, *s.Get(h2))
			assert.NotEqual(t, h2, s.Acquire(40))
		}
	})

	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.False(t, s.Contains(h1))
	assert.False(t, s.Contains(h2))
	assert.True(t, s.Contains(h3))
	assert.Equal(t, h1, s.Acquire(50))
}

func TestStore_AcquireDuringVisitIsNotVisited(t *testing.T) {
	s := New[int]()
	s.Acquire(1)

	calls := 0
	s.Visit(func(Handle, *int) {
		calls++
		s.Acquire(2)
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, s.Len())
}

func TestStore_NestedVisitFlushesOnOutermostExit(t *testing.T) {
	s := New[int]()
	a := s.Acquire(1)
	b := s.Acquire(2)

	s.Visit(func(h Handle, _ *int) {
		if h != a {
			return
		}
		s.Visit(func(inner Handle, _ *int) {
			if inner == b {
				s.Release(b)
			}
		})
		assert.True(t, s.Contains(b), "release applied by inner visit")
	})
	assert.False(t, s.Contains(b))
	assert.False(t, s.Visiting())
}

func TestStore_GuardDefersReleases(t *testing.T) {
	s := New[int]()
	h := s.Acquire(7)
	s.Guard(func() {
		s.Release(h)
		assert.True(t, s.Visiting())
		assert.True(t, s.Contains(h))
	})
	assert.False(t, s.Contains(h))
}

func TestStore_ReleaseHookCascades(t *testing.T) {
	var released []int
	var s *Store[int]
	var chain map[Handle]Handle
	s = New[int](WithReleaseHook[int](func(h Handle, v int) {
		released = append(released, v)
		if next, ok := chain[h]; ok {
			s.Release(next)
		}
	}))
	a := s.Acquire(1)
	b := s.Acquire(2)
	c := s.Acquire(3)
	chain = map[Handle]Handle{a: b, b: c}

	s.Visit(func(h Handle, _ *int) {
		if h == a {
			s.Release(a)
		}
	})
	assert.Equal(t, []int{1, 2, 3}, released)
	assert.Zero(t, s.Len())

	// outside a visit the cascade is applied immediately
	released = nil
	a = s.Acquire(4)
	b = s.Acquire(5)
	chain = map[Handle]Handle{a: b}
	s.Release(a)
	assert.Equal(t, []int{4, 5}, released)
}

func TestStore_MisusePanics(t *testing.T) {
	s := New[int]()
	h := s.Acquire(1)

	assert.PanicsWithError(t, "slots: invalid handle: 5", func() { s.Get(5) })
	assert.Panics(t, func() { s.Release(Invalid) })

	s.Guard(func() {
		s.Release(h)
		assert.PanicsWithError(t, "slots: handle already released: 0", func() { s.Release(h) })
	})
	assert.Panics(t, func() { s.Release(h) })
}

func TestStore_ActiveHandlesIsSnapshot(t *testing.T) {
	s := New[int]()
	a := s.Acquire(1)
	b := s.Acquire(2)
	hs := s.ActiveHandles()
	s.Release(a)
	assert.Equal(t, []Handle{a, b}, hs)
	assert.Equal(t, []Handle{b}, s.ActiveHandles())
}

func TestStore_LogsGrowth(t *testing.T) {
	rec, logger := logtest.New()
	s := New[int](WithLogger[int](logger))
	s.Acquire(1)
	require.NotEmpty(t, rec.Records())
	assert.Equal(t, "slots: grew store", rec.Messages()[0])
	assert.Equal(t, 2, rec.Records()[0].Fields["cells"])
}
