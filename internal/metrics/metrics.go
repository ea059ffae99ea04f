// Package metrics exposes Prometheus instrumentation for the bulletin
// service: HTTP traffic, image pipeline activity, and catalog size.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fahndung_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fahndung_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fahndung_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Image pipeline metrics
var (
	ImageEditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fahndung_image_edits_total",
			Help: "Total number of image edit pipeline runs",
		},
		[]string{"status"},
	)

	ImageEditDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fahndung_image_edit_duration_seconds",
			Help:    "Image edit pipeline duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fahndung_uploads_total",
			Help: "Total number of media uploads",
		},
		[]string{"kind"},
	)
)

// Catalog metrics
var (
	CatalogRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fahndung_catalog_records",
			Help: "Number of records in the media catalog",
		},
	)
)

// statusWriter captures the response status code for labelling.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Middleware records request counts, durations, and in-flight gauge for
// every HTTP request. Paths are intentionally not used as labels to keep
// cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
