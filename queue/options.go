package queue

import (
	"fmt"

	"github.com/aradilov/reactq/internal/grow"
	"github.com/joeycumines/logiface"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Allocation selects when a lock-free processor may allocate ring memory.
type Allocation int

const (
	// AllocateOnProcess grows a pusher's ring from ProcessAll once it is
	// more than half full.
	AllocateOnProcess Allocation = iota
	// AllocateOnPush never grows rings; pushes onto a full ring go to an
	// unbounded overflow buffer instead.
	AllocateOnPush
	// NeverAllocate keeps rings at their initial size; pushes onto a full
	// ring are rejected.
	NeverAllocate
)

var allocationNames = map[Allocation]string{
	AllocateOnProcess: "on-process",
	AllocateOnPush:    "on-push",
	NeverAllocate:     "never",
}

func (a Allocation) String() string {
	if s, ok := allocationNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Allocation(%d)", int(a))
}

// ParseAllocation is the inverse of Allocation.String.
func ParseAllocation(s string) (Allocation, error) {
	for a, name := range allocationNames {
		if name == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown allocation %q", ErrInvalidConfig, s)
}

// Overflow selects what AllocateOnProcess does with a push onto a full ring.
type Overflow int

const (
	// OverflowSpill moves the push to an overflow buffer behind the ring.
	OverflowSpill Overflow = iota
	// OverflowPanic panics with an error wrapping ErrQueueFull.
	OverflowPanic
)

var overflowNames = map[Overflow]string{
	OverflowSpill: "spill",
	OverflowPanic: "panic",
}

func (o Overflow) String() string {
	if s, ok := overflowNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Overflow(%d)", int(o))
}

// ParseOverflow is the inverse of Overflow.String.
func ParseOverflow(s string) (Overflow, error) {
	for o, name := range overflowNames {
		if name == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown overflow %q", ErrInvalidConfig, s)
}

const (
	defaultTombstoneCapacity = 256
	defaultMeterName         = "github.com/aradilov/reactq/queue"
)

// options holds configuration shared by every processor.
type options struct {
	logger            *logiface.Logger[logiface.Event]
	meterProvider     metric.MeterProvider
	name              string
	allocation        Allocation
	overflow          Overflow
	tombstoneCapacity int
}

// Option configures a processor.
type Option interface {
	apply(*options) error
}

type optionImpl struct {
	applyFunc func(*options) error
}

func (o *optionImpl) apply(opts *options) error {
	return o.applyFunc(opts)
}

// WithLogger sets the logger used for growth, overflow and skip events.
// A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *options) error {
		opts.logger = logger
		return nil
	}}
}

// WithMeterProvider sets the OpenTelemetry meter provider. The global
// provider is used by default.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return &optionImpl{func(opts *options) error {
		if provider == nil {
			return fmt.Errorf("%w: nil meter provider", ErrInvalidConfig)
		}
		opts.meterProvider = provider
		return nil
	}}
}

// WithName labels the processor's metrics.
func WithName(name string) Option {
	return &optionImpl{func(opts *options) error {
		opts.name = name
		return nil
	}}
}

// WithAllocation sets the lock-free allocation strategy. Other disciplines
// ignore it.
func WithAllocation(a Allocation) Option {
	return &optionImpl{func(opts *options) error {
		if _, ok := allocationNames[a]; !ok {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, a)
		}
		opts.allocation = a
		return nil
	}}
}

// WithOverflow sets the full-ring behaviour of AllocateOnProcess.
func WithOverflow(o Overflow) Option {
	return &optionImpl{func(opts *options) error {
		if _, ok := overflowNames[o]; !ok {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, o)
		}
		opts.overflow = o
		return nil
	}}
}

// WithTombstoneCapacity sizes the ring carrying released dynamic pusher ids
// to the consumer. It is rounded up to a power of two; releases beyond it
// fall back to a locked buffer.
func WithTombstoneCapacity(n int) Option {
	return &optionImpl{func(opts *options) error {
		if n <= 0 {
			return fmt.Errorf("%w: tombstone capacity %d", ErrInvalidConfig, n)
		}
		opts.tombstoneCapacity = grow.NextPow2(n)
		return nil
	}}
}

func resolveOptions(opts []Option) (*options, error) {
	cfg := &options{
		meterProvider:     otel.GetMeterProvider(),
		tombstoneCapacity: defaultTombstoneCapacity,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
