package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry        *prometheus.Registry
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	loginThrottled  prometheus.Counter
	feedClients     prometheus.GaugeFunc
}

// NewMetrics builds a private registry. feedClients may be nil.
func NewMetrics(feedClients func() float64) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "printqueue_http_requests_total",
			Help: "Total HTTP requests handled by the API.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "printqueue_http_request_duration_seconds",
			Help:    "API request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		loginThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "printqueue_login_throttled_total",
			Help: "Login attempts rejected by rate limiting.",
		}),
	}
	registry.MustRegister(m.requestTotal, m.requestDuration, m.loginThrottled)

	if feedClients != nil {
		m.feedClients = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "printqueue_feed_clients",
			Help: "Connected live feed clients.",
		}, feedClients)
		registry.MustRegister(m.feedClients)
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Instrument records request counts and latency keyed by the matched route
// template, so /api/jobs/:id is one series.
func (m *Metrics) Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.requestTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) LoginThrottled() {
	if m == nil {
		return
	}
	m.loginThrottled.Inc()
}
