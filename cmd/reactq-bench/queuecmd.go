package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/aradilov/reactq/queue"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const (
	disciplineLockFree = "lockfree"
	disciplineLocking  = "locking"
	disciplineSerial   = "serial"
)

type queueParams struct {
	discipline  string
	producers   int
	items       int
	initialSize int
	indices     int
	opts        []queue.Option
}

func (b *bench) queueCommand() *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "push items through a processor and drain them on one consumer",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "discipline",
				Usage: "processor kind: lockfree, locking or serial",
				Value: disciplineLockFree,
			},
			&cli.IntFlag{Name: "producers", Usage: "producer goroutines (serial: pushers)", Value: 4},
			&cli.IntFlag{Name: "items", Usage: "items per producer", Value: 100_000},
			&cli.IntFlag{Name: "initial-size", Usage: "initial ring size per lock-free pusher", Value: 64},
			&cli.IntFlag{Name: "indices", Usage: "serial: distinct indices items coalesce into", Value: 64},
			&cli.StringFlag{Name: "config", Usage: "YAML or JSON file with a queue section"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p := queueParams{
				discipline:  cmd.String("discipline"),
				producers:   cmd.Int("producers"),
				items:       cmd.Int("items"),
				initialSize: cmd.Int("initial-size"),
				indices:     cmd.Int("indices"),
			}
			if path := cmd.String("config"); path != "" {
				cfg, err := queue.LoadConfigFile(path)
				if err != nil {
					return err
				}
				if p.opts, err = cfg.Options(); err != nil {
					return err
				}
				if cfg.InitialSize > 0 && !cmd.IsSet("initial-size") {
					p.initialSize = cfg.InitialSize
				}
			}
			return b.runQueue(ctx, p)
		},
	}
}

func (b *bench) runQueue(ctx context.Context, p queueParams) error {
	if p.producers <= 0 || p.items <= 0 {
		return fmt.Errorf("producers and items must be positive")
	}
	opts := append([]queue.Option{queue.WithLogger(b.logger), queue.WithName(p.discipline)}, p.opts...)

	start := time.Now()
	var (
		stats queue.Stats
		err   error
	)
	switch p.discipline {
	case disciplineLockFree:
		stats, err = b.runLockFree(ctx, p, opts)
	case disciplineLocking:
		stats, err = b.runLocking(ctx, p, opts)
	case disciplineSerial:
		stats, err = b.runSerial(ctx, p, opts)
	default:
		return fmt.Errorf("unknown discipline %q", p.discipline)
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	b.logger.Info().
		Str("discipline", p.discipline).
		Int("processed", int(stats.Processed)).
		Int("grown", int(stats.Grown)).
		Int("spilled", int(stats.Spilled)).
		Log("queue run finished")
	_, err = fmt.Fprintf(b.out,
		"queue: discipline=%s pushed=%d processed=%d skipped=%d grown=%d spilled=%d rejected=%d elapsed=%s\n",
		p.discipline, p.producers*p.items, stats.Processed, stats.Skipped, stats.Grown,
		stats.Spilled, stats.Rejected, elapsed)
	return err
}

// consume drains proc until want tasks ran or ctx is done.
func consume(ctx context.Context, proc queue.Processor[int], want int) error {
	var done int
	for done < want {
		if err := ctx.Err(); err != nil {
			return err
		}
		if n := proc.ProcessAll(func(int) {}); n == 0 {
			runtime.Gosched()
		} else {
			done += n
		}
	}
	return nil
}

func (b *bench) runLockFree(ctx context.Context, p queueParams, opts []queue.Option) (queue.Stats, error) {
	proc, err := queue.NewLockFree[int](opts...)
	if err != nil {
		return queue.Stats{}, err
	}

	pushers := make([]*queue.Pusher[int], p.producers)
	for i := range pushers {
		pushers[i] = proc.MakePusher(p.initialSize)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, pusher := range pushers {
		g.Go(func() error {
			for i := range p.items {
				for !pusher.Push(i) {
					// only NeverAllocate rejects; wait for the consumer
					if err := gctx.Err(); err != nil {
						return err
					}
					runtime.Gosched()
				}
			}
			return nil
		})
	}

	err = consume(gctx, proc, p.producers*p.items)
	if werr := g.Wait(); err == nil {
		err = werr
	}
	for _, pusher := range pushers {
		pusher.Release()
	}
	// reclaim the released pushers
	proc.ProcessAll(func(int) {})
	if err != nil {
		return queue.Stats{}, err
	}
	return proc.Stats(), nil
}

func (b *bench) runLocking(ctx context.Context, p queueParams, opts []queue.Option) (queue.Stats, error) {
	proc, err := queue.NewLocking[int](opts...)
	if err != nil {
		return queue.Stats{}, err
	}

	pushers := make([]*queue.LockingPusher[int], p.producers)
	for i := range pushers {
		pushers[i] = proc.MakePusher()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, pusher := range pushers {
		g.Go(func() error {
			for i := range p.items {
				if i%4096 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				pusher.Push(i)
			}
			return nil
		})
	}

	err = consume(gctx, proc, p.producers*p.items)
	if werr := g.Wait(); err == nil {
		err = werr
	}
	for _, pusher := range pushers {
		pusher.Release()
	}
	if err != nil {
		return queue.Stats{}, err
	}
	return proc.Stats(), nil
}

func (b *bench) runSerial(ctx context.Context, p queueParams, opts []queue.Option) (queue.Stats, error) {
	if p.indices <= 0 {
		return queue.Stats{}, fmt.Errorf("indices must be positive")
	}
	proc, err := queue.NewSerial[int](opts...)
	if err != nil {
		return queue.Stats{}, err
	}

	pushers := make([]*queue.SerialPusher[int], p.producers)
	for i := range pushers {
		pushers[i] = proc.MakePusher()
	}
	for i := range p.items {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return queue.Stats{}, err
			}
		}
		for _, pusher := range pushers {
			pusher.PushIndexed(i%p.indices, i)
		}
		if i%p.indices == p.indices-1 {
			proc.ProcessAll(func(int) {})
		}
	}
	proc.ProcessAll(func(int) {})
	for _, pusher := range pushers {
		pusher.Release()
	}
	return proc.Stats(), nil
}
