// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// httpRequests counts requests by route pattern, method and status.
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "komponente",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status"})

	// httpDuration tracks request latency by route.
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "komponente",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
	}, []string{"route"})

	// movements counts ledger writes by kind and outcome.
	movements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "komponente",
		Subsystem: "ledger",
		Name:      "movements_total",
		Help:      "Ledger movements by kind and result",
	}, []string{"kind", "result"})

	// assetOps counts asset store calls by operation and outcome.
	assetOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "komponente",
		Subsystem: "assets",
		Name:      "operations_total",
		Help:      "Asset store operations by operation and result",
	}, []string{"operation", "result"})
)

// ObserveRequest records one finished HTTP request. route should be the
// matched pattern, not the raw path, to keep label cardinality bounded.
func ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveMovement records a ledger write attempt. result is "ok" or a short
// error label such as "insufficient_stock".
func ObserveMovement(kind, result string) {
	movements.WithLabelValues(kind, result).Inc()
}

// ObserveAsset records an asset store call.
func ObserveAsset(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	assetOps.WithLabelValues(operation, result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
