// Package metrics holds the gateway's Prometheus collectors.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the gateway's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fakestore_offline",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fakestore_offline",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	routerOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fakestore_offline",
			Subsystem: "router",
			Name:      "responses_total",
			Help:      "Routed requests by cache policy and response source.",
		},
		[]string{"policy", "source"},
	)

	routerUnavailable = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fakestore_offline",
			Subsystem: "router",
			Name:      "unavailable_total",
			Help:      "Requests that could be served neither from the network nor from the cache.",
		},
		[]string{"policy"},
	)

	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fakestore_offline",
			Subsystem: "router",
			Name:      "network_fetch_duration_seconds",
			Help:      "Duration of upstream fetches.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"result"},
	)

	generationEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fakestore_offline",
			Subsystem: "cache",
			Name:      "generation_evictions_total",
			Help:      "Cache generation evictions.",
		},
		[]string{"success"},
	)

	cartPersistFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fakestore_offline",
			Subsystem: "cart",
			Name:      "persist_failures_total",
			Help:      "Cart snapshots that could not be written to durable storage.",
		},
	)

	online = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fakestore_offline",
			Subsystem: "connectivity",
			Name:      "online",
			Help:      "1 when the platform reports connectivity, 0 otherwise.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		routerOutcomes,
		routerUnavailable,
		fetchDuration,
		generationEvictions,
		cartPersistFailures,
		online,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordRouted counts a routed response.
func RecordRouted(policy, source string) {
	routerOutcomes.WithLabelValues(policy, source).Inc()
}

// RecordUnavailable counts a request nothing could serve.
func RecordUnavailable(policy string) {
	routerUnavailable.WithLabelValues(policy).Inc()
}

// RecordFetch observes an upstream fetch.
func RecordFetch(result string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	fetchDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordEviction counts a generation eviction attempt.
func RecordEviction(success bool) {
	generationEvictions.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// RecordCartPersistFailure counts a failed cart write.
func RecordCartPersistFailure() {
	cartPersistFailures.Inc()
}

// SetOnline mirrors the connectivity flag.
func SetOnline(isOnline bool) {
	if isOnline {
		online.Set(1)
		return
	}
	online.Set(0)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// canonicalPath keeps label cardinality bounded: gateway API routes keep
// their first two segments, proxied traffic collapses to one label.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" {
		return "/proxy"
	}
	if len(parts) >= 3 && parts[1] == "v1" {
		return "/api/v1/" + parts[2]
	}
	return "/api"
}
