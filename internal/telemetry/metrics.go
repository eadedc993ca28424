package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "msgq"
)

type (
	// Metrics receives queue events. Implementations must be safe for
	// concurrent use and must not block.
	Metrics interface {
		MessageSent(size int, truncated bool)
		MessageReceived(wait time.Duration)
		ReceiveTimedOut()
		Cleared(dropped int)
		OperationFailed(op, code string)
		Depth(n int)
	}

	PrometheusMetrics struct {
		sentTotal      prometheus.Counter
		receivedTotal  prometheus.Counter
		truncatedTotal prometheus.Counter
		timeoutTotal   prometheus.Counter
		clearedTotal   prometheus.Counter
		errorTotal     *prometheus.CounterVec
		depth          prometheus.Gauge
		payloadBytes   prometheus.Histogram
		receiveWait    prometheus.Histogram
	}
)

// NewPrometheusMetrics builds the queue collectors and registers them with reg.
func NewPrometheusMetrics(reg prometheus.Registerer, subsystem string) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		sentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "messages_sent_total",
			Help:      "Messages appended to the queue.",
		}),
		receivedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "messages_received_total",
			Help:      "Messages handed to a receiver.",
		}),
		truncatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "messages_truncated_total",
			Help:      "Messages clamped to the maximum message size on send.",
		}),
		timeoutTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "receive_timeouts_total",
			Help:      "Timed receives that found the queue still empty at the deadline.",
		}),
		clearedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "messages_cleared_total",
			Help:      "Messages discarded by Clear or Destroy.",
		}),
		errorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "operation_errors_total",
			Help:      "Failed queue operations by operation and result code.",
		}, []string{"op", "code"}),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "depth",
			Help:      "Messages currently queued.",
		}),
		payloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "payload_bytes",
			Help:      "Stored payload size of sent messages.",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 6),
		}),
		receiveWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "receive_wait_seconds",
			Help:      "Time receivers spent waiting for a message.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register queue metrics: %w", err)
		}
	}

	return m, nil
}

func (m *PrometheusMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.sentTotal,
		m.receivedTotal,
		m.truncatedTotal,
		m.timeoutTotal,
		m.clearedTotal,
		m.errorTotal,
		m.depth,
		m.payloadBytes,
		m.receiveWait,
	}
}

func (m *PrometheusMetrics) MessageSent(size int, truncated bool) {
	m.sentTotal.Inc()
	m.payloadBytes.Observe(float64(size))
	if truncated {
		m.truncatedTotal.Inc()
	}
}

func (m *PrometheusMetrics) MessageReceived(wait time.Duration) {
	m.receivedTotal.Inc()
	m.receiveWait.Observe(wait.Seconds())
}

func (m *PrometheusMetrics) ReceiveTimedOut() {
	m.timeoutTotal.Inc()
}

func (m *PrometheusMetrics) Cleared(dropped int) {
	m.clearedTotal.Add(float64(dropped))
}

func (m *PrometheusMetrics) OperationFailed(op, code string) {
	m.errorTotal.WithLabelValues(op, code).Inc()
}

func (m *PrometheusMetrics) Depth(n int) {
	m.depth.Set(float64(n))
}
