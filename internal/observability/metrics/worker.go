package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
)

// WorkerMetrics covers the risk event consumer.
type WorkerMetrics struct {
	registry *prometheus.Registry

	eventsTotal     *prometheus.CounterVec
	handleDuration  *prometheus.HistogramVec
	handleInFlight  prometheus.Gauge
	deliveryLatency prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	eventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   "worker",
		Name:        "risk_events_total",
		Help:        "Handled risk events by level and status.",
		ConstLabels: constLabels,
	}, []string{"level", "status"})
	handleDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   "worker",
		Name:        "risk_event_duration_seconds",
		Help:        "Risk event handling duration in seconds by status.",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels,
	}, []string{"status"})
	handleInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "worker",
		Name:        "risk_events_in_flight",
		Help:        "Number of risk events being handled.",
		ConstLabels: constLabels,
	})
	deliveryLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   "worker",
		Name:        "risk_event_delivery_seconds",
		Help:        "Delay between analysis completion and event handling.",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		ConstLabels: constLabels,
	})

	registry.MustRegister(eventsTotal, handleDuration, handleInFlight, deliveryLatency)

	return &WorkerMetrics{
		registry:        registry,
		eventsTotal:     eventsTotal,
		handleDuration:  handleDuration,
		handleInFlight:  handleInFlight,
		deliveryLatency: deliveryLatency,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEvent(event domain.RiskEvent, now time.Time) {
	m.handleInFlight.Inc()
	if !event.CreatedAt.IsZero() {
		if lag := now.Sub(event.CreatedAt); lag >= 0 {
			m.deliveryLatency.Observe(lag.Seconds())
		}
	}
}

func (m *WorkerMetrics) FinishEvent(event domain.RiskEvent, duration time.Duration, err error) {
	m.handleInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	level := string(event.Level)
	if level == "" {
		level = "unknown"
	}
	m.eventsTotal.WithLabelValues(level, status).Inc()
	m.handleDuration.WithLabelValues(status).Observe(duration.Seconds())
}
