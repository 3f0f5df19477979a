package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/formatkit/errors"
)

const namespace = "formatkit"

// Metrics contains the conversion and transport metrics shared by every
// formatkit surface. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Conversion metrics
	ConversionsTotal   *prometheus.CounterVec
	ConversionDuration *prometheus.HistogramVec
	ConversionErrors   *prometheus.CounterVec

	// Registry metrics
	RegisteredPairs   prometheus.Gauge
	RegisteredFormats prometheus.Gauge

	// Gateway metrics
	GatewayRequests *prometheus.CounterVec
	GatewayRejected *prometheus.CounterVec

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		ConversionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "conversions",
				Name:      "total",
				Help:      "Total number of conversions by pair and outcome",
			},
			[]string{"from", "to", "status"},
		),

		ConversionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "conversion",
				Name:      "duration_seconds",
				Help:      "Conversion duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"from", "to"},
		),

		ConversionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "conversion",
				Name:      "errors_total",
				Help:      "Total number of failed conversions by error kind",
			},
			[]string{"kind"},
		),

		RegisteredPairs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "pairs",
				Help:      "Number of registered conversion pairs",
			},
		),

		RegisteredFormats: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "formats",
				Help:      "Number of distinct known formats",
			},
		),

		GatewayRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total number of gateway requests by endpoint and status code",
			},
			[]string{"gateway", "endpoint", "code"},
		),

		GatewayRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "rejected_total",
				Help:      "Total number of gateway requests rejected before conversion",
			},
			[]string{"gateway", "reason"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ConversionsTotal,
		m.ConversionDuration,
		m.ConversionErrors,
		m.RegisteredPairs,
		m.RegisteredFormats,
		m.GatewayRequests,
		m.GatewayRejected,
		m.NATSConnected,
		m.NATSReconnects,
	}
}

// RecordConversion records one conversion outcome. err is classified by its
// taxonomy kind; foreign errors count as "unknown".
func (m *Metrics) RecordConversion(from, to string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
		kind := "unknown"
		if k, ok := errors.KindOf(err); ok {
			kind = k.String()
		}
		m.ConversionErrors.WithLabelValues(kind).Inc()
	}
	m.ConversionsTotal.WithLabelValues(from, to, status).Inc()
	m.ConversionDuration.WithLabelValues(from, to).Observe(duration.Seconds())
}

// RecordRegistrySize updates the registry gauges
func (m *Metrics) RecordRegistrySize(pairs, formats int) {
	if m == nil {
		return
	}
	m.RegisteredPairs.Set(float64(pairs))
	m.RegisteredFormats.Set(float64(formats))
}

// RecordGatewayRequest increments the request counter for a gateway endpoint
func (m *Metrics) RecordGatewayRequest(gateway, endpoint string, code int) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(gateway, endpoint, strconv.Itoa(code)).Inc()
}

// RecordGatewayRejection counts a request refused before conversion
// (rate limited, too large, malformed).
func (m *Metrics) RecordGatewayRejection(gateway, reason string) {
	if m == nil {
		return
	}
	m.GatewayRejected.WithLabelValues(gateway, reason).Inc()
}

// RecordNATSStatus updates NATS connection status
func (m *Metrics) RecordNATSStatus(connected bool) {
	if m == nil {
		return
	}
	value := 0.0
	if connected {
		value = 1.0
	}
	m.NATSConnected.Set(value)
}

// RecordNATSReconnect increments reconnection counter
func (m *Metrics) RecordNATSReconnect() {
	if m == nil {
		return
	}
	m.NATSReconnects.Inc()
}
