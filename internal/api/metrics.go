package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"chat-widget/internal/queue"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute labels requests no registrar claimed, so scanners probing
// random paths cannot grow the label set.
const unmatchedRoute = "unmatched"

// metrics bundles the Prometheus collectors of one API server.
type metrics struct {
	gatherer   prometheus.Gatherer
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inFlight   prometheus.Gauge
	queueWait  prometheus.Histogram
	queueDepth prometheus.GaugeFunc
}

func newMetrics(reg *prometheus.Registry, listenAddr string, q *queue.RequestQueueManager) *metrics {
	labels := prometheus.Labels{"listen_addr": listenAddr}

	m := &metrics{
		gatherer: reg,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "mock_api_http_requests_total",
				Help:        "Requests handled, by route pattern and status.",
				ConstLabels: labels,
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "mock_api_http_request_duration_seconds",
				Help:        "End-to-end request latency, queue wait included.",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"method", "route"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "mock_api_http_inflight_requests",
			Help:        "Requests currently being handled.",
			ConstLabels: labels,
		}),
		queueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "mock_api_request_queue_wait_seconds",
			Help:        "Time a handler job waits for a free worker.",
			Buckets:     []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(m.requests, m.duration, m.inFlight, m.queueWait)

	if q != nil {
		m.queueDepth = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name:        "mock_api_request_queue_depth",
				Help:        "Jobs waiting in the request queue.",
				ConstLabels: labels,
			},
			func() float64 {
				return float64(q.Depth())
			},
		)
		reg.MustRegister(m.queueDepth)
	}

	return m
}

func (m *metrics) metricsHandler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// instrument records every request against the mux pattern that serves it.
func (m *metrics) instrument(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		_, pattern := mux.Handler(r)
		route := routeLabel(pattern)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		mux.ServeHTTP(rec, r)
		elapsed := time.Since(start).Seconds()

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(elapsed)
	})
}

// routeLabel drops the method from a pattern such as
// "GET /api/chat/should-capture-lead/{session_id}".
func routeLabel(pattern string) string {
	if pattern == "" {
		return unmatchedRoute
	}
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		pattern = strings.TrimSpace(pattern[i+1:])
	}
	return pattern
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}
