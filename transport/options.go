package transport

import "github.com/sirupsen/logrus"

const (
	defaultGroup          = "239.0.0.77:4501"
	defaultTTL            = 1
	defaultReadBufferSize = 65535
	defaultReadBacklog    = 1024

	minReadBufferSize = 512
	minReadBacklog    = 1
)

type Options struct {
	// Multicast group the server broadcasts to and clients and peers join
	Group string `yaml:"group"`
	// Name of the interface used for multicast, empty for the system default
	Interface string `yaml:"interface"`
	// Deliver multicast datagrams back to the sending host
	Loopback bool `yaml:"loopback"`
	// Multicast hop limit
	TTL int `yaml:"ttl"`

	ReadBufferSize int `yaml:"read_buffer_size"`
	// Datagrams queued before Receive, excess datagrams are dropped
	ReadBacklog int `yaml:"read_backlog"`

	// Optional logger, defaults to the package logger
	Logger logrus.FieldLogger `yaml:"-"`
}

func DefaultOptions() Options {
	return Options{
		Group:          defaultGroup,
		TTL:            defaultTTL,
		ReadBufferSize: defaultReadBufferSize,
		ReadBacklog:    defaultReadBacklog,
	}
}

func sanitizeOptions(opts Options) Options {
	if opts.Group == "" {
		opts.Group = defaultGroup
	}
	if opts.TTL < 1 {
		opts.TTL = defaultTTL
	}
	if opts.ReadBufferSize < minReadBufferSize {
		opts.ReadBufferSize = minReadBufferSize
	}
	if opts.ReadBacklog < minReadBacklog {
		opts.ReadBacklog = minReadBacklog
	}
	if opts.Logger == nil {
		opts.Logger = log
	}
	return opts
}
