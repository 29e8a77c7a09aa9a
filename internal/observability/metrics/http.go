package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ragwiame/gateway/internal/core/domain"
)

// HTTPServerMetrics keeps the gateway's Prometheus metrics on a private
// registry: HTTP server metrics plus retrieval pipeline counters. It
// doubles as the pipeline observer wired into the search use case.
type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchTotal         *prometheus.CounterVec
	fusedCandidates     *prometheus.HistogramVec
	lexicalDegraded     prometheus.Counter
	rerankSkipped       *prometheus.CounterVec
	routerFallbackFails prometheus.Counter
	answerDuration      *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rag",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "pipeline",
			Name:      "search_total",
			Help:      "Completed searches by terminal outcome.",
		},
		[]string{"service", "outcome"},
	)
	fusedCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "pipeline",
			Name:      "fused_candidates",
			Help:      "Distribution of fused candidates per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service"},
	)
	lexicalDegraded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "pipeline",
			Name:      "lexical_degraded_total",
			Help:      "Searches that fell back to dense-only retrieval.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rerankSkipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "pipeline",
			Name:      "rerank_skipped_total",
			Help:      "Searches that skipped cross-encoder reranking, by reason.",
		},
		[]string{"service", "reason"},
	)
	routerFallbackFails := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "pipeline",
			Name:      "router_fallback_failures_total",
			Help:      "Failed completion-backed filter extraction attempts.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "pipeline",
			Name:      "answer_duration_seconds",
			Help:      "End-to-end answer latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchTotal,
		fusedCandidates,
		lexicalDegraded,
		rerankSkipped,
		routerFallbackFails,
		answerDuration,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		service:             service,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		searchTotal:         searchTotal,
		fusedCandidates:     fusedCandidates,
		lexicalDegraded:     lexicalDegraded,
		rerankSkipped:       rerankSkipped,
		routerFallbackFails: routerFallbackFails,
		answerDuration:      answerDuration,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// SearchCompleted implements the pipeline observer.
func (m *HTTPServerMetrics) SearchCompleted(outcome domain.SearchOutcome, fusedCount int) {
	m.searchTotal.WithLabelValues(m.service, string(outcome)).Inc()
	m.fusedCandidates.WithLabelValues(m.service).Observe(float64(fusedCount))
}

func (m *HTTPServerMetrics) LexicalDegraded() {
	m.lexicalDegraded.Inc()
}

func (m *HTTPServerMetrics) RerankSkipped(reason string) {
	m.rerankSkipped.WithLabelValues(m.service, reason).Inc()
}

func (m *HTTPServerMetrics) RouterFallbackFailed() {
	m.routerFallbackFails.Inc()
}

func (m *HTTPServerMetrics) RecordAnswerDuration(endpoint string, duration time.Duration) {
	m.answerDuration.WithLabelValues(m.service, endpoint).Observe(duration.Seconds())
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
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("response writer does not support hijacking")
}
