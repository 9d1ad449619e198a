package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aradilov/reactq/signal"
	"github.com/urfave/cli/v3"
	"github.com/valyala/fastrand"
)

func (b *bench) signalCommand() *cli.Command {
	return &cli.Command{
		Name:  "signal",
		Usage: "emit while callbacks disconnect and reconnect each other",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "connections", Usage: "live connections", Value: 256},
			&cli.IntFlag{Name: "emits", Usage: "emit calls", Value: 10_000},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return b.runSignal(ctx, cmd.Int("connections"), cmd.Int("emits"))
		},
	}
}

func (b *bench) runSignal(ctx context.Context, connections, emits int) error {
	if connections <= 0 || emits <= 0 {
		return fmt.Errorf("connections and emits must be positive")
	}

	sig := signal.New[int](signal.WithLogger(b.logger))
	conns := make([]*signal.Conn, connections)
	var calls, churn int

	var connect func(slot int)
	connect = func(slot int) {
		conns[slot] = sig.Connect(func(int) {
			calls++
			if fastrand.Uint32n(32) != 0 {
				return
			}
			// replace a random connection, possibly this one
			victim := int(fastrand.Uint32n(uint32(connections)))
			conns[victim].Disconnect()
			connect(victim)
			churn++
		})
	}
	for i := range conns {
		connect(i)
	}

	start := time.Now()
	for i := range emits {
		if i%256 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		sig.Emit(i)
	}
	elapsed := time.Since(start)

	if sig.Len() != connections {
		return fmt.Errorf("registry holds %d connections, want %d", sig.Len(), connections)
	}
	sig.Close()

	b.logger.Info().
		Int("calls", calls).
		Int("churn", churn).
		Log("signal churn finished")
	_, err := fmt.Fprintf(b.out, "signal: emits=%d calls=%d churn=%d elapsed=%s\n",
		emits, calls, churn, elapsed)
	return err
}
