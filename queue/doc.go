// Package queue implements task processors: a single consumer goroutine
// drains work pushed through per-producer pushers.
//
// Three disciplines are provided:
//
//   - LockFree: each static Pusher owns a growable single-producer ring.
//     Pushing never locks; the consumer grows a ring once it is more than
//     half full at drain time. Short-lived DynamicPushers share their
//     parent's ring and are told apart by an id tag, so releasing one only
//     costs a tombstone that the consumer applies at drain time.
//   - Locking: each LockingPusher owns a slice behind its own mutex. The
//     consumer swaps the slice out and runs it unlocked, so tasks may push
//     again.
//   - Serial: single goroutine, per-slot ordering with coalescing of
//     indexed pushes.
//
// ProcessAll never waits for producers. Work that becomes visible during a
// drain is picked up by the next call.
//
// Releasing a pusher cancels its queued work: anything not yet run when the
// consumer observes the release is dropped. Work already running is never
// interrupted.
package queue
