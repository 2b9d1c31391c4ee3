package observability

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type registryMetrics struct {
	transactions  *prometheus.CounterVec
	applyLatency  *prometheus.HistogramVec
	registrations prometheus.Counter
	redemptions   *prometheus.CounterVec
	height        prometheus.Gauge

	txCounter         metric.Int64Counter
	redemptionCounter metric.Int64Counter
}

type rpcMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	registryMetricsOnce sync.Once
	registryRegistry    *registryMetrics

	rpcMetricsOnce sync.Once
	rpcRegistry    *rpcMetrics
)

// Registry returns the lazily-initialised metrics registry for the
// transaction host.
func Registry() *registryMetrics {
	registryMetricsOnce.Do(func() {
		registryRegistry = &registryMetrics{
			transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "invite",
				Subsystem: "host",
				Name:      "transactions_total",
				Help:      "Applied transactions segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			applyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "invite",
				Subsystem: "host",
				Name:      "apply_duration_seconds",
				Help:      "Latency distribution for applying a transaction, commit included.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			registrations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "invite",
				Subsystem: "registry",
				Name:      "codes_registered_total",
				Help:      "Invite codes bound to accounts.",
			}),
			redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "invite",
				Subsystem: "registry",
				Name:      "redemptions_total",
				Help:      "Committed redemptions segmented by pathway.",
			}, []string{"pathway"}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "invite",
				Subsystem: "host",
				Name:      "height",
				Help:      "Height of the last committed state root.",
			}),
		}
		prometheus.MustRegister(
			registryRegistry.transactions,
			registryRegistry.applyLatency,
			registryRegistry.registrations,
			registryRegistry.redemptions,
			registryRegistry.height,
		)
		registryRegistry.initMeter()
	})
	return registryRegistry
}

// initMeter mirrors the domain counters onto the global OpenTelemetry meter so
// they reach the OTLP exporter when telemetry is enabled.
func (m *registryMetrics) initMeter() {
	meter := otel.GetMeterProvider().Meter("inviteregistry/host")
	txCounter, err := meter.Int64Counter("invite.host.transactions")
	if err != nil {
		meter = noop.NewMeterProvider().Meter("inviteregistry/host")
		txCounter, _ = meter.Int64Counter("invite.host.transactions")
	}
	redemptionCounter, err := meter.Int64Counter("invite.registry.redemptions")
	if err != nil {
		redemptionCounter, _ = noop.NewMeterProvider().Meter("inviteregistry/host").Int64Counter("invite.registry.redemptions")
	}
	m.txCounter = txCounter
	m.redemptionCounter = redemptionCounter
}

// ObserveTransaction records the outcome of an applied transaction.
func (m *registryMetrics) ObserveTransaction(method string, committed bool, duration time.Duration) {
	if m == nil {
		return
	}
	method = normalizeLabel(method)
	outcome := "committed"
	if !committed {
		outcome = "reverted"
	}
	m.transactions.WithLabelValues(method, outcome).Inc()
	m.applyLatency.WithLabelValues(method).Observe(duration.Seconds())
	if m.txCounter != nil {
		m.txCounter.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("outcome", outcome)))
	}
}

// RecordRegistration increments the registered code counter.
func (m *registryMetrics) RecordRegistration() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}

// RecordRedemption increments the redemption counter. Pathways are stable
// strings such as "operator", "award" or "self".
func (m *registryMetrics) RecordRedemption(pathway string) {
	if m == nil {
		return
	}
	pathway = normalizeLabel(pathway)
	m.redemptions.WithLabelValues(pathway).Inc()
	if m.redemptionCounter != nil {
		m.redemptionCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("pathway", pathway)))
	}
}

// SetHeight publishes the committed height.
func (m *registryMetrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}

// RPC returns the lazily-initialised JSON-RPC metrics registry.
func RPC() *rpcMetrics {
	rpcMetricsOnce.Do(func() {
		rpcRegistry = &rpcMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "invite",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "invite",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "invite",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			rpcRegistry.requests,
			rpcRegistry.latency,
			rpcRegistry.throttles,
		)
	})
	return rpcRegistry
}

// Observe records the outcome of a JSON-RPC request.
func (m *rpcMetrics) Observe(method string, failed bool, duration time.Duration) {
	if m == nil {
		return
	}
	method = normalizeLabel(method)
	outcome := "success"
	if failed {
		outcome = "error"
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit".
func (m *rpcMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	m.throttles.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
