package netsync

import (
	"datagram-sync/netsync/protocol"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the transport metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "netsync").
	Namespace string
	Subsystem string

	ConstLabels prometheus.Labels

	// Registry the metrics are registered with. Nil keeps them unregistered.
	Registry prometheus.Registerer
}

// Metrics counts transport activity. A nil *Metrics discards everything.
type Metrics struct {
	packetsSent     *prometheus.CounterVec
	packetsReceived *prometheus.CounterVec
	bytesSent       prometheus.Counter
	bytesReceived   prometheus.Counter
	resyncBytes     prometheus.Counter
	decodeErrors    prometheus.Counter
	dispatchDropped *prometheus.CounterVec
	dispatchErrors  *prometheus.CounterVec
	rttEvicted      prometheus.Counter
	rttSeconds      prometheus.Gauge
	bufferBytes     prometheus.Gauge
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "netsync"
	}
	factory := promauto.With(cfg.Registry)
	counterOpts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.ConstLabels,
		}
	}
	gaugeOpts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.ConstLabels,
		}
	}
	return &Metrics{
		packetsSent:     factory.NewCounterVec(counterOpts("packets_sent_total", "Packets written to the socket"), []string{"type"}),
		packetsReceived: factory.NewCounterVec(counterOpts("packets_received_total", "Packets decoded from the socket"), []string{"type"}),
		bytesSent:       factory.NewCounter(counterOpts("bytes_sent_total", "Bytes written to the socket")),
		bytesReceived:   factory.NewCounter(counterOpts("bytes_received_total", "Bytes read from the socket")),
		resyncBytes:     factory.NewCounter(counterOpts("resync_bytes_total", "Bytes skipped while searching for the protocol marker")),
		decodeErrors:    factory.NewCounter(counterOpts("decode_errors_total", "Packet bodies that failed to decode")),
		dispatchDropped: factory.NewCounterVec(counterOpts("dispatch_dropped_total", "Payloads for unknown objects"), []string{"type"}),
		dispatchErrors:  factory.NewCounterVec(counterOpts("dispatch_errors_total", "Payloads the target object failed to apply"), []string{"type"}),
		rttEvicted:      factory.NewCounter(counterOpts("rtt_evicted_total", "Sequences never acknowledged within the maximum round trip")),
		rttSeconds:      factory.NewGauge(gaugeOpts("rtt_seconds", "Smoothed round-trip time")),
		bufferBytes:     factory.NewGauge(gaugeOpts("receive_buffer_bytes", "Capacity of the receive buffer")),
	}
}

func (m *Metrics) sent(t protocol.MessageType, n int) {
	if m == nil {
		return
	}
	m.packetsSent.WithLabelValues(t.String()).Inc()
	m.bytesSent.Add(float64(n))
}

func (m *Metrics) received(n int) {
	if m == nil {
		return
	}
	m.bytesReceived.Add(float64(n))
}

func (m *Metrics) decoded(t protocol.MessageType) {
	if m == nil {
		return
	}
	m.packetsReceived.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) resync(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.resyncBytes.Add(float64(n))
}

func (m *Metrics) decodeFailed() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

func (m *Metrics) dropped(t protocol.MessageType) {
	if m == nil {
		return
	}
	m.dispatchDropped.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) dispatchFailed(t protocol.MessageType) {
	if m == nil {
		return
	}
	m.dispatchErrors.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) evicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rttEvicted.Add(float64(n))
}

func (m *Metrics) rtt(seconds float64) {
	if m == nil {
		return
	}
	m.rttSeconds.Set(seconds)
}

func (m *Metrics) buffer(n int) {
	if m == nil {
		return
	}
	m.bufferBytes.Set(float64(n))
}
