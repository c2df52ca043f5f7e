// Package middleware holds the HTTP middleware the server wraps around its
// router: Prometheus request metrics and zap request logging.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "students_dashboard"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_in_flight_requests",
		Help:      "Current number of in-flight HTTP requests",
	})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_response_size_bytes",
		Help:      "Size of HTTP responses in bytes",
		Buckets:   prometheus.ExponentialBuckets(200, 2, 8),
	}, []string{"method", "route", "status"})
)

// MetricsHandler serves the default registry on /metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// Metrics records request count, latency and response size per route.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := prometheus.Labels{
			"method": r.Method,
			"route":  RouteLabel(r.URL.Path),
			"status": strconv.Itoa(status),
		}
		httpRequests.With(labels).Inc()
		httpLatency.With(labels).Observe(time.Since(start).Seconds())
		httpResponseSize.With(labels).Observe(float64(ww.BytesWritten()))
	})
}

// routeOther labels every path that is not a known route.
const routeOther = "other"

var (
	fixedRoutes = map[string]bool{
		"/api/students":  true,
		"/api/students/": true,
		"/healthz":       true,
		"/metrics":       true,
	}
	studentSubroutes = map[string]bool{
		"":               true,
		"/profile":       true,
		"/contests":      true,
		"/problems":      true,
		"/sync-settings": true,
		"/sync":          true,
	}
)

// RouteLabel maps a request path onto a fixed set of labels so label
// cardinality stays bounded: /api/students/64b7f0/profile becomes
// /api/students/{id}/profile and unknown paths become "other".
func RouteLabel(path string) string {
	if fixedRoutes[path] {
		return path
	}

	const prefix = "/api/students/"
	if !strings.HasPrefix(path, prefix) {
		return routeOther
	}

	rest := path[len(prefix):]
	sub := ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		sub = rest[i:]
	}
	if !studentSubroutes[sub] {
		return routeOther
	}
	return prefix + "{id}" + sub
}
