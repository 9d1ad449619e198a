// Package grow holds the sizing policy shared by the slot store and the queue
// buffers.
package grow

// Policy decides the new capacity of a buffer that must hold at least
// required elements. current is the existing capacity.
type Policy interface {
	Size(current, required int) int
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(current, required int) int

func (f PolicyFunc) Size(current, required int) int { return f(current, required) }

// Doubling grows to twice the required size.
var Doubling Policy = PolicyFunc(func(_, required int) int {
	return required * 2
})

// Exact grows to exactly the required size.
var Exact Policy = PolicyFunc(func(_, required int) int {
	return required
})

// Resolve returns p's answer, clamped so the result always fits required.
// A nil p behaves as Doubling.
func Resolve(p Policy, current, required int) int {
	if p == nil {
		p = Doubling
	}
	n := p.Size(current, required)
	if n < required {
		n = required
	}
	return n
}

// NextPow2 rounds n up to a power of two, with a minimum of 2.
func NextPow2(n int) int {
	v := 2
	for v < n {
		v <<= 1
	}
	return v
}
