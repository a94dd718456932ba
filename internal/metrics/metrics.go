package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps Prometheus metrics for the order service.
type Metrics struct {
	registry           *prometheus.Registry
	orderCreated       prometheus.Counter
	orderRejected      *prometheus.CounterVec
	orderLatency       prometheus.Histogram
	dependencyFailures *prometheus.CounterVec
}

// New creates a metrics registry and registers order metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	orderCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of completed orders.",
	})

	orderRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Total number of rejected order placements.",
	}, []string{"reason"})

	orderLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_latency_seconds",
		Help:    "Latency for order placement in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	dependencyFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dependency_failures_total",
		Help: "Total number of upstream service failures.",
	}, []string{"service"})

	registry.MustRegister(orderCreated, orderRejected, orderLatency, dependencyFailures)

	return &Metrics{
		registry:           registry,
		orderCreated:       orderCreated,
		orderRejected:      orderRejected,
		orderLatency:       orderLatency,
		dependencyFailures: dependencyFailures,
	}
}

// IncOrderCreated 订单完成计数
func (m *Metrics) IncOrderCreated() {
	m.orderCreated.Inc()
}

// IncOrderRejected 订单拒绝计数
func (m *Metrics) IncOrderRejected(reason string) {
	m.orderRejected.WithLabelValues(reason).Inc()
}

// ObserveOrderLatency 记录下单耗时
func (m *Metrics) ObserveOrderLatency(d time.Duration) {
	m.orderLatency.Observe(d.Seconds())
}

// IncDependencyFailure 上游服务失败计数
func (m *Metrics) IncDependencyFailure(service string) {
	m.dependencyFailures.WithLabelValues(service).Inc()
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
