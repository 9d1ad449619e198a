package queue

import "errors"

var (
	// ErrQueueFull is the panic value (wrapped) raised by a lock-free push
	// onto a full ring when the processor was built with OverflowPanic.
	ErrQueueFull = errors.New("queue: ring is full")

	// ErrInvalidConfig is returned for options or configuration values that
	// cannot be applied.
	ErrInvalidConfig = errors.New("queue: invalid config")
)

var (
	// ErrReentrant is the panic value raised when a task calls ProcessAll on
	// the processor that is running it.
	ErrReentrant = errors.New("queue: ProcessAll called from a running task")

	// ErrUnmapped is the panic value (wrapped) raised by PushMapped for an
	// index that was never mapped.
	ErrUnmapped = errors.New("queue: index not mapped")
)
