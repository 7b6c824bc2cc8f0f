package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instrumentation for a GatewayClient. A nil
// *Metrics is valid everywhere it is used: all methods on it are no-ops, so
// callers that don't want metrics never need to check for nil themselves.
type Metrics struct {
	callsTotal    *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	bytesSent     prometheus.Counter
	bytesReceived prometheus.Counter
}

// Outcome labels recorded on the calls_total counter.
const (
	OutcomeOK       = "ok"
	OutcomeGateway  = "gateway_error"
	OutcomeHTTP     = "http_error"
	OutcomeProtocol = "protocol_error"
	OutcomeCrypto   = "crypto_error"
	OutcomeTimeout  = "timeout"
)

// NewMetrics registers a fresh set of counters/histograms with the default
// prometheus registerer. Call this once per process; pass the result to
// SetMetrics.
func NewMetrics() *Metrics {
	return &Metrics{
		callsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "zkllm",
				Subsystem: "client",
				Name:      "calls_total",
				Help:      "Total number of infer calls by outcome kind",
			},
			[]string{"outcome", "token_class"},
		),
		callDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "zkllm",
				Subsystem: "client",
				Name:      "call_duration_seconds",
				Help:      "Duration of an infer call after the ticket is drawn (payload build + seal + transport + open)",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"token_class"},
		),
		bytesSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "zkllm",
				Subsystem: "client",
				Name:      "envelope_bytes_sent_total",
				Help:      "Total length of the base64 ciphertext field of sealed envelopes sent to the gateway",
			},
		),
		bytesReceived: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "zkllm",
				Subsystem: "client",
				Name:      "envelope_bytes_received_total",
				Help:      "Total length of the base64 ciphertext field of sealed envelopes received from the gateway",
			},
		),
	}
}

func (m *Metrics) recordCall(outcome, tokenClass string, seconds float64) {
	if m == nil {
		return
	}
	m.callsTotal.WithLabelValues(outcome, tokenClass).Inc()
	m.callDuration.WithLabelValues(tokenClass).Observe(seconds)
}

func (m *Metrics) recordSent(n int) {
	if m == nil {
		return
	}
	m.bytesSent.Add(float64(n))
}

func (m *Metrics) recordReceived(n int) {
	if m == nil {
		return
	}
	m.bytesReceived.Add(float64(n))
}
