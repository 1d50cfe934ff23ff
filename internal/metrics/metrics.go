// Package metrics holds the Prometheus collectors shared by the server and
// the worker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gestion",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gestion",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gestion",
		Name:      "mutations_total",
		Help:      "Successful create, update and delete operations by resource.",
	}, []string{"recurso", "accion"})

	VentasUSD = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gestion",
		Name:      "ventas_usd_cents_total",
		Help:      "Sum of registered sales in USD cents.",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gestion",
		Name:      "sync_events_published_total",
		Help:      "Sync events sent to the broker by outcome.",
	}, []string{"recurso", "result"})

	MirrorSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gestion",
		Name:      "mirror_syncs_total",
		Help:      "Rows written to or removed from the spreadsheet mirror by outcome.",
	}, []string{"recurso", "action", "result"})

	ReportsRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gestion",
		Name:      "reports_rendered_total",
		Help:      "Rendered reports by type and format.",
	}, []string{"tipo", "formato"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gestion",
		Name:      "rate_limited_requests_total",
		Help:      "Requests rejected by the rate limiter.",
	})

	SuspiciousRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gestion",
		Name:      "suspicious_requests_total",
		Help:      "Requests matching a known probing pattern.",
	})

	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gestion",
		Name:      "auth_failures_total",
		Help:      "Rejected logins and tokens by reason.",
	}, []string{"reason"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
