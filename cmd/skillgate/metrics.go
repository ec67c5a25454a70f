package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stas-makutin/skillgate/internal/skill"
	"github.com/stas-makutin/skillgate/internal/skillauth"
)

type gatewayMetrics struct {
	registry            *prometheus.Registry
	verificationsTotal  *prometheus.CounterVec
	fetchDuration       *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func newGatewayMetrics() *gatewayMetrics {
	m := &gatewayMetrics{
		registry: prometheus.NewRegistry(),
		verificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillgate_verifications_total",
			Help: "Skill request verifications by result",
		}, []string{"result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "skillgate_certificate_fetch_duration_seconds",
			Help:    "Signing certificate fetch latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"result"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skillgate_http_requests_total",
			Help: "HTTP requests by method, path and status",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "skillgate_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	m.registry.MustRegister(
		m.verificationsTotal,
		m.fetchDuration,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

var metrics = newGatewayMetrics()

func (m *gatewayMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// instrumentedVerifier counts verification outcomes by rejection reason.
type instrumentedVerifier struct {
	next    skill.Authenticator
	metrics *gatewayMetrics
}

func (v *instrumentedVerifier) Verify(ctx context.Context, req skillauth.VerificationRequest) error {
	err := v.next.Verify(ctx, req)
	result := "authenticated"
	if err != nil {
		result = "error"
		if kind, ok := skillauth.KindOf(err); ok {
			result = kind.String()
		}
	}
	v.metrics.verificationsTotal.WithLabelValues(result).Inc()
	return err
}

// instrumentedFetcher measures network fetches; it sits below the cache.
type instrumentedFetcher struct {
	next    skillauth.CertificateFetcher
	metrics *gatewayMetrics
}

func (f *instrumentedFetcher) Fetch(ctx context.Context, certificateURL string) ([]byte, error) {
	start := time.Now()
	data, err := f.next.Fetch(ctx, certificateURL)
	result := "ok"
	if err != nil {
		result = "error"
	}
	f.metrics.fetchDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	return data, err
}

func metricsHandler(m *gatewayMetrics, path string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			srw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(srw, r)
			m.httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(srw.statusCode)).Inc()
			m.httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(status int) {
	w.statusCode = status
	w.ResponseWriter.WriteHeader(status)
}

func addMetricsRoutes(router *http.ServeMux) {
	handleDedicatedRoute(router, routeMetrics, metrics.handler())
}
