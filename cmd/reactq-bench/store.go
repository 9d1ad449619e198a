package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aradilov/reactq/slots"
	"github.com/urfave/cli/v3"
	"github.com/valyala/fastrand"
)

func (b *bench) storeCommand() *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "random acquire/release churn, verifying handle stability",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "ops", Usage: "operations to perform", Value: 1_000_000},
			&cli.IntFlag{Name: "max-live", Usage: "upper bound on live handles", Value: 4096},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return b.runStore(ctx, cmd.Int("ops"), cmd.Int("max-live"))
		},
	}
}

func (b *bench) runStore(ctx context.Context, ops, maxLive int) error {
	if ops <= 0 || maxLive <= 0 {
		return fmt.Errorf("ops and max-live must be positive")
	}

	var released int
	store := slots.New[int](
		slots.WithLogger[int](b.logger),
		slots.WithReleaseHook(func(slots.Handle, int) { released++ }),
	)
	live := make([]slots.Handle, 0, maxLive)
	want := make(map[slots.Handle]int, maxLive)

	start := time.Now()
	for i := range ops {
		if i%4096 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}

		switch {
		case len(live) < maxLive && (len(live) == 0 || fastrand.Uint32n(2) == 0):
			h := store.Acquire(i)
			if _, dup := want[h]; dup {
				return fmt.Errorf("handle %d handed out twice", h)
			}
			want[h] = i
			live = append(live, h)

		case fastrand.Uint32n(64) == 0:
			// release a random handle from inside a visit
			victim := int(fastrand.Uint32n(uint32(len(live))))
			h := live[victim]
			store.Visit(func(visited slots.Handle, _ *int) {
				if visited == h {
					store.Release(h)
				}
			})
			live[victim] = live[len(live)-1]
			live = live[:len(live)-1]
			delete(want, h)

		default:
			victim := int(fastrand.Uint32n(uint32(len(live))))
			h := live[victim]
			if got := *store.Get(h); got != want[h] {
				return fmt.Errorf("handle %d holds %d, want %d", h, got, want[h])
			}
			store.Release(h)
			live[victim] = live[len(live)-1]
			live = live[:len(live)-1]
			delete(want, h)
		}
	}
	elapsed := time.Since(start)

	if store.Len() != len(live) {
		return fmt.Errorf("store holds %d handles, want %d", store.Len(), len(live))
	}

	b.logger.Info().
		Int("ops", ops).
		Int("released", released).
		Int("cells", store.Cap()).
		Log("store churn finished")
	_, err := fmt.Fprintf(b.out, "store: ops=%d live=%d cells=%d released=%d elapsed=%s\n",
		ops, store.Len(), store.Cap(), released, elapsed)
	return err
}
