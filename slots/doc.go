// Package slots implements a reusable-cell store: a growable array that hands
// out integer handles on Acquire and frees them on Release, always reusing the
// lowest free index.
//
// A handle stays valid until it is released, regardless of how often the
// backing array grows, so other components can keep handles where they would
// otherwise keep pointers.
//
// # Re-entrancy
//
// Visit and Guard put the store in a visiting state. Any Release issued while
// visiting (from the visitor itself, from code it calls, or from a nested
// visit) is queued and applied when the outermost visit returns. A queued
// handle stays readable through Get until then and is never handed out again
// by Acquire before it is actually released. Applying a release runs the
// optional release hook; releases issued by the hook are queued as well and
// the queue is drained until it stays empty.
//
// # Misuse
//
// Operating on a handle that was never acquired, or was already released, is
// a programmer error: the store panics with an error wrapping
// ErrInvalidHandle.
//
// A Store is not safe for concurrent use.
package slots
