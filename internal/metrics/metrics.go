// Package metrics provides Prometheus metrics for the library service and
// the document store.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doclib_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "doclib_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	previewLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doclib_preview_loads_total",
			Help: "Preview loads by document kind and outcome",
		},
		[]string{"kind", "result"},
	)

	remoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "doclib_remote_request_duration_seconds",
			Help:    "Remote document store request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	documentsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doclib_documents",
			Help: "Documents in the canonical store",
		},
	)

	directoriesGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doclib_directories",
			Help: "Directories in the reconstructed tree, root included",
		},
	)

	catalogDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "doclib_catalog_documents",
			Help: "Documents indexed by the reference store",
		},
	)

	sseClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "doclib_sse_clients",
			Help: "Connected SSE clients",
		},
		[]string{"broker"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordPreviewLoad counts one preview load. result is "loaded",
// "placeholder" or "error".
func RecordPreviewLoad(kind, result string) {
	previewLoadsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveRemote records the duration of a remote store call.
func ObserveRemote(op string, d time.Duration) {
	remoteRequestDuration.WithLabelValues(op).Observe(d.Seconds())
}

// SetLibrarySize sets the document and directory gauges.
func SetLibrarySize(documents, directories int) {
	documentsGauge.Set(float64(documents))
	directoriesGauge.Set(float64(directories))
}

// SetCatalogDocuments sets the number of indexed documents in the store.
func SetCatalogDocuments(n int) {
	catalogDocuments.Set(float64(n))
}

// SetSSEClients sets the connected client count for a broker.
func SetSSEClients(broker string, n int) {
	sseClients.WithLabelValues(broker).Set(float64(n))
}

// Middleware records request metrics labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordHTTPRequest(r.Method, routeLabel(r), status, time.Since(start))
	})
}

// unmatchedRoute labels requests no route pattern matched, keeping the
// label set bounded.
const unmatchedRoute = "unmatched"

func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return unmatchedRoute
}
