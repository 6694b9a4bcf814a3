package httpclient

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metricsHTTP struct {
	once sync.Once

	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var httpMetrics metricsHTTP

func (m *metricsHTTP) init() {
	m.once.Do(func() {
		m.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sesame_http_requests_total",
			Help: "HTTP requests issued, by method and status code",
		}, []string{"method", "code"})
		m.failures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sesame_http_transport_errors_total",
			Help: "HTTP requests that failed before a response was received",
		}, []string{"method"})
		m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sesame_http_request_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"})

		prometheus.MustRegister(m.requests, m.failures, m.duration)
	})
}

// Instrumented wraps a Client and records request counts and latencies in the default
// Prometheus registry.
type Instrumented struct {
	next Client
}

// NewInstrumented decorates next with Prometheus metrics.
func NewInstrumented(next Client) *Instrumented {
	httpMetrics.init()
	return &Instrumented{next: next}
}

// Get performs an instrumented GET request.
func (i *Instrumented) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	return i.Do(ctx, Request{Method: "GET", URL: url, Headers: headers})
}

// Do performs an instrumented request.
func (i *Instrumented) Do(ctx context.Context, req Request) (Response, error) {
	method := req.Method
	if method == "" {
		method = "GET"
	}

	start := time.Now()
	resp, err := i.next.Do(ctx, req)
	httpMetrics.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		httpMetrics.failures.WithLabelValues(method).Inc()
		return nil, err
	}
	httpMetrics.requests.WithLabelValues(method, strconv.Itoa(resp.StatusCode())).Inc()
	return resp, nil
}
