// Package metrics exposes Prometheus metrics for the login service on a
// registry of its own.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mufa_login"

// Upstream labels
const (
	UpstreamProvider  = "provider"
	UpstreamDirectory = "directory"
)

// Recorder owns the service metrics. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	callbacks        *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewRecorder creates the metrics and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func NewRecorder() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callbacks_total",
			Help:      "OAuth callbacks handled, by outcome",
		}, []string{"outcome"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Latency of calls to the identity provider and the user directory",
			Buckets:   prometheus.DefBuckets,
		}, []string{"upstream", "operation", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	for _, c := range []prometheus.Collector{
		r.callbacks,
		r.upstreamDuration,
		r.httpRequests,
		r.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := r.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Callback counts one finished callback.
func (r *Recorder) Callback(outcome string) {
	if r == nil {
		return
	}
	r.callbacks.WithLabelValues(outcome).Inc()
}

// CallbackCounter returns the counter for one callback outcome.
func (r *Recorder) CallbackCounter(outcome string) prometheus.Counter {
	return r.callbacks.WithLabelValues(outcome)
}

// Upstream records the latency of one upstream call.
func (r *Recorder) Upstream(upstream, operation string, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.upstreamDuration.WithLabelValues(upstream, operation, result).Observe(elapsed.Seconds())
}

// Middleware counts requests by the matched chi route pattern, so path
// parameters do not explode the label space.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, req.ProtoMajor)

		defer func() {
			route := "unmatched"
			if rctx := chi.RouteContext(req.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			r.httpRequests.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
			r.httpDuration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
		}()

		next.ServeHTTP(ww, req)
	})
}
