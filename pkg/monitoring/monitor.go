package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	MonitorClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "monitor_clients",
			Help: "Connected proctoring websocket clients",
		},
	)

	MonitorEventCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_events_total",
			Help: "Proctoring channel events by type and direction",
		},
		[]string{"type", "direction"},
	)

	ScheduledFires = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_fires_total",
			Help: "Scheduler timer fires by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(MonitorClients)
	prometheus.MustRegister(MonitorEventCounter)
	prometheus.MustRegister(ScheduledFires)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
