// reactq-bench exercises the reactq primitives under load.
//
// Usage:
//
//	reactq-bench [--log-level LEVEL] <command> [flags]
//
// Commands:
//
//	store    random acquire/release churn on a slot store
//	signal   emit with connect/disconnect churn inside callbacks
//	queue    producers pushing through a processor drained by one consumer
//
// Logs are JSON on stderr; results go to stdout.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bench carries state shared by every command.
type bench struct {
	out    io.Writer
	logger *logiface.Logger[logiface.Event]
}

func newApp(out, errOut io.Writer) *cli.Command {
	b := &bench{out: out}
	return &cli.Command{
		Name:  "reactq-bench",
		Usage: "stress and benchmark the reactq primitives",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (trace, debug, info, notice, warning, err, disabled)",
				Value: "info",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level, err := parseLevel(cmd.String("log-level"))
			if err != nil {
				return ctx, err
			}
			b.logger = stumpy.L.New(
				stumpy.L.WithStumpy(stumpy.WithWriter(errOut)),
				stumpy.L.WithLevel(level),
			).Logger()
			return ctx, nil
		},
		Commands: []*cli.Command{
			b.storeCommand(),
			b.signalCommand(),
			b.queueCommand(),
		},
	}
}

var levels = []logiface.Level{
	logiface.LevelDisabled,
	logiface.LevelEmergency,
	logiface.LevelAlert,
	logiface.LevelCritical,
	logiface.LevelError,
	logiface.LevelWarning,
	logiface.LevelNotice,
	logiface.LevelInformational,
	logiface.LevelDebug,
	logiface.LevelTrace,
}

func parseLevel(s string) (logiface.Level, error) {
	for _, l := range levels {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
