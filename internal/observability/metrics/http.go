package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/wellness-agents/internal/core/domain"
)

const namespace = "wellness"

// HTTPServerMetrics holds the api's registry. It also implements
// ports.AnalysisObserver so the analyzers report into the same registry.
type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	rejectedTotal   *prometheus.CounterVec

	analysisRunsTotal *prometheus.CounterVec
	analysisDuration  *prometheus.HistogramVec
	channelTotal      *prometheus.CounterVec
	channelDuration   *prometheus.HistogramVec
	llmTokensTotal    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	m := &HTTPServerMetrics{
		registry: registry,
		service:  service,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total HTTP requests processed.",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "route"}),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: constLabels,
		}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "rejected_total",
			Help:        "Requests shed by rate limiting or backpressure.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		analysisRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "analysis",
			Name:        "runs_total",
			Help:        "Completed analyzer runs by kind and status.",
			ConstLabels: constLabels,
		}, []string{"kind", "status"}),
		analysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "analysis",
			Name:        "duration_seconds",
			Help:        "End-to-end analyzer run duration including fan-out.",
			Buckets:     []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			ConstLabels: constLabels,
		}, []string{"kind"}),
		channelTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "channel",
			Name:        "searches_total",
			Help:        "Recommendation channel searches by outcome.",
			ConstLabels: constLabels,
		}, []string{"channel", "status"}),
		channelDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "channel",
			Name:        "duration_seconds",
			Help:        "Recommendation channel search duration.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"channel"}),
		llmTokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "llm",
			Name:        "tokens_total",
			Help:        "Token usage reported by the model provider.",
			ConstLabels: constLabels,
		}, []string{"endpoint", "direction", "model"}),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.rejectedTotal,
		m.analysisRunsTotal,
		m.analysisDuration,
		m.channelTotal,
		m.channelDuration,
		m.llmTokensTotal,
	)
	return m
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware must run inside the chi router so the matched route pattern
// is known once the handler returns.
func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		route := routePattern(r)
		m.requestTotal.WithLabelValues(r.Method, route, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

func (m *HTTPServerMetrics) RecordRejected(reason string) {
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

func (m *HTTPServerMetrics) ObserveAnalysis(kind domain.AnalysisKind, status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.analysisRunsTotal.WithLabelValues(string(kind), status).Inc()
	m.analysisDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) ObserveChannel(channel domain.Channel, status string, duration time.Duration) {
	m.channelTotal.WithLabelValues(string(channel), status).Inc()
	m.channelDuration.WithLabelValues(string(channel)).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) ObserveCompletion(endpoint string, completion domain.Completion) {
	model := completion.Model
	if model == "" {
		model = "unknown"
	}
	if completion.PromptTokens > 0 {
		m.llmTokensTotal.WithLabelValues(endpoint, "in", model).Add(float64(completion.PromptTokens))
	}
	if completion.CompletionTokens > 0 {
		m.llmTokensTotal.WithLabelValues(endpoint, "out", model).Add(float64(completion.CompletionTokens))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
