package signal

import (
	"testing"

	"github.com/aradilov/reactq/internal/logtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal_EmitReachesEveryConnection(t *testing.T) {
	s := New[int]()
	var got []int
	for i := range 3 {
		s.Connect(func(v int) { got = append(got, v*10+i) })
	}

	s.Emit(7)

	assert.Equal(t, []int{70, 71, 72}, got)
	assert.Equal(t, 3, s.Len())
}

func TestSignal_DisconnectStopsDelivery(t *testing.T) {
	s := New[string]()
	var calls int
	c := s.Connect(func(string) { calls++ })

	s.Emit("a")
	c.Disconnect()
	c.Disconnect()
	s.Emit("b")

	assert.Equal(t, 1, calls)
	assert.False(t, c.Connected())
	assert.Zero(t, s.Len())
}

func TestSignal_SelfDisconnectDuringEmit(t *testing.T) {
	const n = 5
	s := New[struct{}]()
	var calls int
	for range n {
		var c *Conn
		c = s.Connect(func(struct{}) {
			calls++
			c.Disconnect()
		})
	}

	s.Emit(struct{}{})
	assert.Equal(t, n, calls)
	assert.Zero(t, s.Len())

	s.Emit(struct{}{})
	assert.Equal(t, n, calls)
}

func TestSignal_DisconnectOtherDuringEmitSkipsIt(t *testing.T) {
	s := New[int]()
	var order []string
	var second *Conn
	s.Connect(func(int) {
		order = append(order, "first")
		second.Disconnect()
		// still registered until the emit returns
		assert.Equal(t, 2, s.Len())
	})
	second = s.Connect(func(int) { order = append(order, "second") })

	s.Emit(1)

	assert.Equal(t, []string{"first"}, order)
	assert.Equal(t, 1, s.Len())
}

func TestSignal_ConnectDuringEmitIsNotInvoked(t *testing.T) {
	s := New[int]()
	var late int
	var once bool
	s.Connect(func(int) {
		if !once {
			once = true
			s.Connect(func(int) { late++ })
		}
	})

	s.Emit(1)
	assert.Zero(t, late)

	s.Emit(2)
	assert.Equal(t, 1, late)
}

func TestSignal_ReentrantEmit(t *testing.T) {
	s := New[int]()
	var seen []int
	s.Connect(func(v int) {
		seen = append(seen, v)
		if v > 0 {
			s.Emit(v - 1)
		}
	})

	s.Emit(2)

	assert.Equal(t, []int{2, 1, 0}, seen)
}

func TestSignal_NestedEmitKeepsOuterCopy(t *testing.T) {
	s := New[string]()
	var seen []string
	s.Connect(func(v string) {
		seen = append(seen, "a"+v)
		if v == "1" {
			s.Emit("0")
		}
	})
	s.Connect(func(v string) { seen = append(seen, "b"+v) })

	s.Emit("1")
	s.Emit("2")

	assert.Equal(t, []string{"a1", "a0", "b0", "b1", "a2", "b2"}, seen)
	// one buffer per nesting level, reused afterwards
	assert.Len(t, s.scratch, 2)
}

func TestSignal_CloseDetachesTokens(t *testing.T) {
	recorder, logger := logtest.New()
	s := New[int](WithLogger(logger))
	var calls int
	conns := []*Conn{
		s.Connect(func(int) { calls++ }),
		s.Connect(func(int) { calls++ }),
	}

	s.Close()

	assert.True(t, s.Closed())
	assert.Zero(t, s.Len())
	for _, c := range conns {
		assert.False(t, c.Connected())
		c.Disconnect()
	}

	s.Emit(1)
	assert.Zero(t, calls)
	assert.False(t, s.Connect(func(int) { calls++ }).Connected())

	var closed []logtest.Record
	for _, rec := range recorder.Records() {
		if rec.Msg == "signal: closed with live connections" {
			closed = append(closed, rec)
		}
	}
	require.Len(t, closed, 1)
	assert.Equal(t, 2, closed[0].Fields["connections"])
}

func TestSignal_CloseDuringEmitStopsRemainder(t *testing.T) {
	s := New[int]()
	var calls int
	s.Connect(func(int) {
		calls++
		s.Close()
	})
	tail := s.Connect(func(int) { calls++ })

	s.Emit(1)

	assert.Equal(t, 1, calls)
	assert.Zero(t, s.Len())
	assert.False(t, tail.Connected())
}

func TestSignal_MoveKeepsTokensWorking(t *testing.T) {
	src := New[int]()
	var a, b int
	ca := src.Connect(func(v int) { a += v })
	src.Connect(func(v int) { b += v })

	dst := src.Move()
	src.Emit(100)
	dst.Emit(1)

	assert.Zero(t, src.Len())
	assert.Equal(t, 2, dst.Len())
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)

	ca.Disconnect()
	dst.Emit(1)
	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
	assert.Equal(t, 1, dst.Len())

	// the source stays usable
	src.Connect(func(v int) { a += v })
	src.Emit(5)
	assert.Equal(t, 6, a)
}

func TestSignal_MoveDuringEmitPanics(t *testing.T) {
	s := New[int]()
	s.Connect(func(int) {
		assert.PanicsWithValue(t, ErrEmitting, func() { s.Move() })
	})
	s.Emit(0)
}

func TestSignal_NilCallback(t *testing.T) {
	s := New[int]()
	c := s.Connect(nil)
	assert.False(t, c.Connected())
	assert.Zero(t, s.Len())

	var zero *Conn
	zero.Disconnect()
	assert.False(t, zero.Connected())
}

func TestGroup_DisconnectAll(t *testing.T) {
	s := New[int]()
	var g Group
	var calls int
	for range 4 {
		g.Add(s.Connect(func(int) { calls++ }))
	}
	g.Add(nil)
	keep := s.Connect(func(int) { calls += 100 })

	require.Equal(t, 4, g.Len())
	g.DisconnectAll()
	s.Emit(0)

	assert.Zero(t, g.Len())
	assert.Equal(t, 100, calls)
	assert.True(t, keep.Connected())
}

func TestGroup_DisconnectAllFromCallback(t *testing.T) {
	s := New[int]()
	var g Group
	var calls int
	g.Add(s.Connect(func(int) {
		calls++
		g.DisconnectAll()
	}))
	g.Add(s.Connect(func(int) { calls++ }))

	s.Emit(0)
	s.Emit(0)

	assert.Equal(t, 1, calls)
	assert.Zero(t, s.Len())
}
