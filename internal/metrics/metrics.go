// Package metrics collects and exposes Prometheus metrics for the
// reservation lifecycle and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector counts lifecycle transitions and observes request latency.
type Collector struct {
	reservationsCreated   prometheus.Counter
	emailsConfirmed       prometheus.Counter
	reservationsConfirmed prometheus.Counter
	reservationsDeleted   prometheus.Counter
	requestDuration       *prometheus.HistogramVec
}

// NewCollector registers all metrics on reg and returns the collector.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reservationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservo_reservations_created_total",
			Help: "Reservations taken in, before any confirmation.",
		}),
		emailsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservo_emails_confirmed_total",
			Help: "Email confirmations that won the claim and booked an event.",
		}),
		reservationsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservo_reservations_confirmed_total",
			Help: "Reservations finalized by the operator.",
		}),
		reservationsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservo_reservations_deleted_total",
			Help: "Reservations removed, in any state.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reservo_http_request_duration_seconds",
			Help:    "HTTP request latency by method and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status_code"}),
	}

	reg.MustRegister(
		c.reservationsCreated,
		c.emailsConfirmed,
		c.reservationsConfirmed,
		c.reservationsDeleted,
		c.requestDuration,
	)

	return c
}

func (c *Collector) ReservationCreated() {
	c.reservationsCreated.Inc()
}

func (c *Collector) EmailConfirmed() {
	c.emailsConfirmed.Inc()
}

func (c *Collector) ReservationConfirmed() {
	c.reservationsConfirmed.Inc()
}

func (c *Collector) ReservationDeleted() {
	c.reservationsDeleted.Inc()
}

// Middleware observes the duration and status of every request.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		c.requestDuration.
			WithLabelValues(r.Method, strconv.Itoa(sw.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
