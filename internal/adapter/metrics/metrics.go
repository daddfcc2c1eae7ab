package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/niksmo/fakestore/internal/core/domain"
	"github.com/niksmo/fakestore/internal/core/port"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fakestore"

var (
	_ port.CartObserver   = (*Metrics)(nil)
	_ port.FilterObserver = (*Metrics)(nil)
)

type SessionCounter interface {
	Len() int
}

// Metrics keeps the storefront collectors in a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	cartUpdatesTotal    prometheus.Counter
	cartItems           prometheus.Histogram
	filterChangesTotal  prometheus.Counter
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cartUpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "updates_total",
			Help:      "Total cart changes across sessions",
		}),
		cartItems: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "items",
			Help:      "Items in a cart after a change",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		}),
		filterChangesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "changes_total",
			Help:      "Total accepted filter edits across sessions",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "code"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cartUpdatesTotal,
		m.cartItems,
		m.filterChangesTotal,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)
	return m
}

// TrackCatalog exposes the catalog size and loading flag as gauges.
func (m *Metrics) TrackCatalog(c port.CatalogReader) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "products",
			Help:      "Products in the loaded catalog",
		}, func() float64 {
			return float64(len(c.Products()))
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "loading",
			Help:      "1 while the catalog fetch is outstanding",
		}, func() float64 {
			if c.Loading() {
				return 1
			}
			return 0
		}),
	)
}

func (m *Metrics) TrackSessions(s SessionCounter) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Sessions held in memory",
		}, func() float64 {
			return float64(s.Len())
		}),
	)
}

func (m *Metrics) OnCartUpdate(u domain.CartUpdate) {
	m.cartUpdatesTotal.Inc()
	m.cartItems.Observe(float64(u.Count))
}

func (m *Metrics) OnFilterChange(domain.FilterChange) {
	m.filterChangesTotal.Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}
