package chatapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type opKey struct{}

func withOp(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey{}, op)
}

func opFrom(ctx context.Context) string {
	if op, ok := ctx.Value(opKey{}).(string); ok {
		return op
	}
	return "unknown"
}

// metrics bundles the collectors describing calls to the backend.
type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_widget_api_requests_total",
				Help: "Total count of backend API calls made by the widget.",
			},
			[]string{"op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chat_widget_api_request_duration_seconds",
				Help:    "Histogram of backend API call durations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}

	m.requests = register(reg, m.requests)
	m.duration = register(reg, m.duration)
	return m
}

// register reuses an identical collector when several clients share reg.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// instrumentedTransport records one sample per round trip.
type instrumentedTransport struct {
	next    http.RoundTripper
	metrics *metrics
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	op := opFrom(req.Context())

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	t.metrics.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	t.metrics.requests.WithLabelValues(op, outcome(resp, err)).Inc()
	return resp, err
}

func outcome(resp *http.Response, err error) string {
	if err != nil {
		return "error"
	}
	switch {
	case resp.StatusCode < 300:
		return "2xx"
	case resp.StatusCode < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
