package netsync

import (
	"datagram-sync/netsync/protocol"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultInitialBufferSize = 4096
	defaultMaxBufferSize     = 4 << 20
	defaultMaxPayloadSize    = 1 << 20
	defaultMaxRoundTrip      = 2 * time.Second
	defaultRTTSmoothing      = 0.1
	defaultWorkers           = 4
	defaultWorkBacklog       = 1024

	minBufferSize  = 512
	minPayloadSize = 64
	minWorkers     = 1
	minWorkBacklog = 1
)

type Config struct {
	// Initial capacity of the receive buffer, doubled on demand
	InitialBufferSize int `yaml:"initial_buffer_size"`
	// Receive buffer never grows past this size
	MaxBufferSize int `yaml:"max_buffer_size"`
	// Headers declaring a larger payload are treated as stream noise
	MaxPayloadSize int `yaml:"max_payload_size"`

	// Outstanding sequences older than this are dropped from the RTT table
	MaxRoundTrip time.Duration `yaml:"max_round_trip"`
	// Starting value of the smoothed RTT
	InitialRTT time.Duration `yaml:"initial_rtt"`
	// Weight of a new sample in the smoothed RTT, in (0, 1]
	RTTSmoothing float64 `yaml:"rtt_smoothing"`

	// Number of goroutines serializing broadcasts
	Workers int `yaml:"workers"`
	// Number of broadcasts that may wait for a worker
	WorkBacklog int `yaml:"work_backlog"`

	Serializer Serializer `yaml:"-"`
	Compressor Compressor `yaml:"-"`
	Registry   Registry   `yaml:"-"`
	Metrics    *Metrics   `yaml:"-"`

	// Optional logger, defaults to the package logger
	Logger logrus.FieldLogger `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		InitialBufferSize: defaultInitialBufferSize,
		MaxBufferSize:     defaultMaxBufferSize,
		MaxPayloadSize:    defaultMaxPayloadSize,
		MaxRoundTrip:      defaultMaxRoundTrip,
		RTTSmoothing:      defaultRTTSmoothing,
		Workers:           defaultWorkers,
		WorkBacklog:       defaultWorkBacklog,
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.InitialBufferSize < minBufferSize {
		cfg.InitialBufferSize = minBufferSize
	}
	if cfg.MaxBufferSize < cfg.InitialBufferSize {
		cfg.MaxBufferSize = cfg.InitialBufferSize
	}
	if cfg.MaxPayloadSize < minPayloadSize {
		cfg.MaxPayloadSize = minPayloadSize
	}
	// A pending packet must always fit in the buffer
	if cfg.MaxBufferSize < cfg.MaxPayloadSize+protocol.HeaderSize {
		cfg.MaxBufferSize = cfg.MaxPayloadSize + protocol.HeaderSize
	}
	if cfg.MaxRoundTrip <= 0 {
		cfg.MaxRoundTrip = defaultMaxRoundTrip
	}
	if cfg.InitialRTT < 0 {
		cfg.InitialRTT = 0
	}
	if cfg.RTTSmoothing <= 0 || cfg.RTTSmoothing > 1 {
		cfg.RTTSmoothing = defaultRTTSmoothing
	}
	if cfg.Workers < minWorkers {
		cfg.Workers = minWorkers
	}
	if cfg.WorkBacklog < minWorkBacklog {
		cfg.WorkBacklog = minWorkBacklog
	}
	if cfg.Serializer == nil {
		cfg.Serializer = MsgpackSerializer{}
	}
	if cfg.Compressor == nil {
		cfg.Compressor = S2Compressor{}
	}
	if cfg.Registry == nil {
		cfg.Registry = NewMapRegistry()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(MetricsConfig{})
	}
	if cfg.Logger == nil {
		cfg.Logger = log
	}
	return cfg
}
