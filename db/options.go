package db

import "context"

type Option func(*Options)

type Options struct {
	Path        string
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	PoolSize    int
	MaxOverflow int
	Context     context.Context
}

func WithPath(path string) Option {
	return func(o *Options) {
		o.Path = path
	}
}

func WithHost(host string) Option {
	return func(o *Options) {
		o.Host = host
	}
}

func WithPort(port int) Option {
	return func(o *Options) {
		o.Port = port
	}
}

func WithDatabase(name string) Option {
	return func(o *Options) {
		o.Database = name
	}
}

func WithUser(user string) Option {
	return func(o *Options) {
		o.User = user
	}
}

func WithPassword(password string) Option {
	return func(o *Options) {
		o.Password = password
	}
}

func WithPoolSize(size int) Option {
	return func(o *Options) {
		o.PoolSize = size
	}
}

func WithMaxOverflow(overflow int) Option {
	return func(o *Options) {
		o.MaxOverflow = overflow
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Host:        "localhost",
		Port:        5432,
		PoolSize:    10,
		MaxOverflow: 20,
		Context:     context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
