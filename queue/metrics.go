package queue

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricProcessed = "reactq.queue.processed"
	metricSkipped   = "reactq.queue.skipped"
	metricGrown     = "reactq.queue.grown"
	metricSpilled   = "reactq.queue.spilled"
	metricRejected  = "reactq.queue.rejected"
)

// Stats is a snapshot of a processor's counters.
type Stats struct {
	Processed uint64 // tasks run
	Skipped   uint64 // tasks dropped because their pusher was released
	Grown     uint64 // ring reallocations
	Spilled   uint64 // tasks delivered through an overflow buffer
	Rejected  uint64 // pushes refused by a full ring
}

type metrics struct {
	processed uint64
	skipped   uint64
	grown     uint64
	spilled   uint64
	rejected  uint64

	attrs            metric.MeasurementOption
	processedCounter metric.Int64Counter
	skippedCounter   metric.Int64Counter
	grownCounter     metric.Int64Counter
	spilledCounter   metric.Int64Counter
	rejectedCounter  metric.Int64Counter
}

func newMetrics(cfg *options, discipline string) (*metrics, error) {
	meter := cfg.meterProvider.Meter(defaultMeterName)
	m := &metrics{
		attrs: metric.WithAttributeSet(attribute.NewSet(
			attribute.String("discipline", discipline),
			attribute.String("queue", cfg.name),
		)),
	}

	for _, c := range [...]struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.processedCounter, metricProcessed, "tasks run"},
		{&m.skippedCounter, metricSkipped, "tasks dropped after their pusher was released"},
		{&m.grownCounter, metricGrown, "ring reallocations"},
		{&m.spilledCounter, metricSpilled, "tasks delivered through an overflow buffer"},
		{&m.rejectedCounter, metricRejected, "pushes refused by a full ring"},
	} {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit("1"))
		if err != nil {
			return nil, fmt.Errorf("queue: create counter %s failed: %w", c.name, err)
		}
		*c.dst = counter
	}

	return m, nil
}

// drained records the outcome of one ProcessAll call. Consumer only.
func (m *metrics) drained(processed, skipped, spilled int) {
	ctx := context.Background()
	if processed > 0 {
		atomic.AddUint64(&m.processed, uint64(processed))
		m.processedCounter.Add(ctx, int64(processed), m.attrs)
	}
	if skipped > 0 {
		atomic.AddUint64(&m.skipped, uint64(skipped))
		m.skippedCounter.Add(ctx, int64(skipped), m.attrs)
	}
	if spilled > 0 {
		atomic.AddUint64(&m.spilled, uint64(spilled))
		m.spilledCounter.Add(ctx, int64(spilled), m.attrs)
	}
}

func (m *metrics) grew() {
	atomic.AddUint64(&m.grown, 1)
	m.grownCounter.Add(context.Background(), 1, m.attrs)
}

// reject may be called from any producer.
func (m *metrics) reject() {
	atomic.AddUint64(&m.rejected, 1)
	m.rejectedCounter.Add(context.Background(), 1, m.attrs)
}

func (m *metrics) stats() Stats {
	return Stats{
		Processed: atomic.LoadUint64(&m.processed),
		Skipped:   atomic.LoadUint64(&m.skipped),
		Grown:     atomic.LoadUint64(&m.grown),
		Spilled:   atomic.LoadUint64(&m.spilled),
		Rejected:  atomic.LoadUint64(&m.rejected),
	}
}
