package vector

import "context"

type Option func(*Options)

type Options struct {
	Location string
	Context  context.Context
}

// WithLocation sets the backend location: a data directory for the local
// backend, a connection string for a database-delegated backend.
func WithLocation(loc string) Option {
	return func(o *Options) {
		o.Location = loc
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
