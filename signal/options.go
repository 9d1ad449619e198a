package signal

import "github.com/joeycumines/logiface"

type options struct {
	logger *logiface.Logger[logiface.Event]
}

// Option configures a Signal.
type Option func(*options)

// WithLogger attaches a logger; nil disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func resolveOptions(opts []Option) *options {
	cfg := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}
