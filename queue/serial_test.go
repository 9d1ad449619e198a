package queue

import (
	"testing"

	"github.com/aradilov/reactq/internal/logtest"
	"github.com/aradilov/reactq/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSerial[T any](t *testing.T, opts ...Option) *Serial[T] {
	t.Helper()
	p, err := NewSerial[T](opts...)
	require.NoError(t, err)
	return p
}

func collect[T any](p *Serial[T]) []T {
	var got []T
	p.ProcessAll(func(v T) { got = append(got, v) })
	return got
}

func TestSerial_CoalescesIndexedPushes(t *testing.T) {
	p := newSerial[string](t)
	pusher := p.MakePusher()

	pusher.PushIndexed(7, "old")
	pusher.PushIndexed(8, "other")
	pusher.PushIndexed(7, "new")
	assert.Equal(t, 2, p.Pending())

	assert.Equal(t, []string{"new", "other"}, collect(p))
	assert.Zero(t, p.Pending())

	// the index is free again after the drain
	pusher.PushIndexed(7, "again")
	assert.Equal(t, []string{"again"}, collect(p))
}

func TestSerial_PlainBeforeIndexed(t *testing.T) {
	p := newSerial[string](t)
	pusher := p.MakePusher()

	pusher.Push("p1")
	pusher.PushIndexed(1, "i1")
	pusher.Push("p2")
	pusher.Push("p2")

	assert.Equal(t, []string{"p1", "p2", "p2", "i1"}, collect(p))
}

func TestSerial_PushesDuringProcessingRunInSameCall(t *testing.T) {
	p := newSerial[int](t)
	pusher := p.MakePusher()

	var got []int
	pusher.PushIndexed(1, 0)
	n := p.ProcessAll(func(v int) {
		got = append(got, v)
		if v < 3 {
			// same index as the running task: buffered, not coalesced away
			pusher.PushIndexed(1, v+1)
			pusher.PushIndexed(1, v+1)
		}
	})

	assert.Equal(t, []int{0, 1, 2, 3}, got)
	assert.Equal(t, 4, n)
	assert.Zero(t, p.Pending())
}

func TestSerial_PushesAcrossPushers(t *testing.T) {
	p := newSerial[string](t)
	a := p.MakePusher()
	b := p.MakePusher()

	var got []string
	a.Push("a1")
	p.ProcessAll(func(v string) {
		got = append(got, v)
		if v == "a1" {
			b.Push("b1")
		}
	})

	assert.Equal(t, []string{"a1", "b1"}, got)
	assert.Equal(t, uint64(2), p.Stats().Processed)
}

func TestSerial_ReleaseDuringOwnProcessingIsDeferred(t *testing.T) {
	recorder, logger := logtest.New()
	p := newSerial[string](t, WithLogger(logger))
	victim := p.MakePusher()
	other := p.MakePusher()

	victim.Push("a")
	victim.Push("b")
	victim.PushIndexed(1, "c")
	other.Push("x")

	var got []string
	p.ProcessAll(func(v string) {
		got = append(got, v)
		if v == "a" {
			victim.Push("pushed-before-release")
			victim.Release()
			victim.Push("ignored")
			// the slot stays registered until the drain returns
			assert.Equal(t, 2, p.Len())
		}
	})

	assert.Contains(t, got, "a")
	assert.Contains(t, got, "x")
	assert.NotContains(t, got, "b")
	assert.NotContains(t, got, "c")
	assert.Len(t, got, 2)
	assert.Zero(t, p.Pending())
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, uint64(3), p.Stats().Skipped)
	assert.Contains(t, recorder.Messages(), "queue: released pusher with queued tasks")

	// the handle can be reused
	fresh := p.MakePusher()
	fresh.Push("y")
	assert.Equal(t, []string{"y"}, collect(p))
}

func TestSerial_ReleaseOutsideProcessing(t *testing.T) {
	p := newSerial[int](t)
	pusher := p.MakePusher()
	pusher.Push(1)
	pusher.PushIndexed(3, 3)
	require.Equal(t, 2, p.Pending())

	pusher.Release()
	pusher.Release()
	pusher.Push(2)

	assert.Zero(t, p.Pending())
	assert.Zero(t, p.Len())
	assert.Empty(t, collect(p))
	assert.Equal(t, uint64(2), p.Stats().Skipped)
}

func TestSerial_PremappedTriggers(t *testing.T) {
	p := newSerial[func()](t)
	pusher := p.MakePusher()

	var recomputed int
	pusher.Map(1, func() { recomputed++ })

	changed := signal.New[string]()
	changed.Connect(func(string) { pusher.Trigger(1)() })

	changed.Emit("width")
	changed.Emit("height")
	pusher.PushMapped(1)

	assert.Equal(t, 1, p.ProcessAll(Run))
	assert.Equal(t, 1, recomputed)

	err := recoverError(func() { pusher.PushMapped(2) })
	require.ErrorIs(t, err, ErrUnmapped)
	assert.EqualError(t, err, "queue: index not mapped: 2")
}

func TestSerial_ProcessAllIsNotReentrant(t *testing.T) {
	p := newSerial[int](t)
	p.MakePusher().Push(1)
	p.ProcessAll(func(int) {
		assert.PanicsWithValue(t, ErrReentrant, func() { p.ProcessAll(func(int) {}) })
	})
	assert.Zero(t, p.Pending())
}
