package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cler",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cler",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	prescriptionOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cler",
		Name:      "prescription_operations_total",
		Help:      "Prescription store mutations by operation.",
	}, []string{"operation"})

	profileOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cler",
		Name:      "profile_operations_total",
		Help:      "Profile store mutations by operation.",
	}, []string{"operation"})

	reportsRendered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cler",
		Name:      "reports_rendered_total",
		Help:      "Prescription PDF reports rendered.",
	})

	gateRedirects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cler",
		Name:      "access_gate_redirects_total",
		Help:      "Redirects issued by the access gate by target.",
	}, []string{"target"})
)

func init() {
	prometheus.MustRegister(httpRequests, httpDuration, prescriptionOps, profileOps, reportsRendered, gateRedirects)
}

func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func PrescriptionOperation(op string) { prescriptionOps.WithLabelValues(op).Inc() }

func ProfileOperation(op string) { profileOps.WithLabelValues(op).Inc() }

func ReportRendered() { reportsRendered.Inc() }

func GateRedirect(target string) { gateRedirects.WithLabelValues(target).Inc() }

func Handler() http.Handler {
	return promhttp.Handler()
}
