package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"roomrent-dashboard/internal/domain"
)

// Metrics groups the dashboard's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RoomOperations      *prometheus.CounterVec
	Rooms               *prometheus.GaugeVec
	LiveSubscriptions   prometheus.Gauge
}

// New registers the collectors on reg with the given name prefix.
func New(prefix string, reg interface {
	prometheus.Registerer
	prometheus.Gatherer
}) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		RoomOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_room_operations_total",
				Help: "Total number of room mutations by operation and result",
			},
			[]string{"operation", "result"},
		),
		Rooms: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prefix + "_rooms",
				Help: "Rooms in the latest snapshot by status",
			},
			[]string{"status"},
		),
		LiveSubscriptions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "_live_subscriptions",
				Help: "Open room subscriptions",
			},
		),
	}
}

// RecordRoomOperation counts one create/book/checkout call.
func (m *Metrics) RecordRoomOperation(operation string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.RoomOperations.WithLabelValues(operation, result).Inc()
}

// ObserveRooms sets the room gauges from a snapshot.
func (m *Metrics) ObserveRooms(rooms []domain.Room) {
	if m == nil {
		return
	}
	stats := domain.ComputeStats(rooms)
	m.Rooms.WithLabelValues(string(domain.RoomStatusAvailable)).Set(float64(stats.Available))
	m.Rooms.WithLabelValues(string(domain.RoomStatusOccupied)).Set(float64(stats.Occupied))
}

// SubscriptionOpened tracks a live query; the returned func undoes it.
func (m *Metrics) SubscriptionOpened() func() {
	if m == nil {
		return func() {}
	}
	m.LiveSubscriptions.Inc()
	return m.LiveSubscriptions.Dec
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Middleware records request count and latency labelled by route template.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
