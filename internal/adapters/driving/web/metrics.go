package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/bidwright/internal/core/domain"
	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

// Ensure Metrics implements the interface.
var _ driven.StageObserver = (*Metrics)(nil)

// Metrics records stage and request metrics in its own registry.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageActive   *prometheus.GaugeVec
	requests      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them, together with the
// Go runtime and process collectors, in a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bidwright",
			Name:      "stage_duration_seconds",
			Help:      "Duration of agent stage calls.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"stage", "outcome"}),
		stageActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bidwright",
			Name:      "stage_active",
			Help:      "Agent stage calls in flight.",
		}, []string{"stage"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bidwright",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
	}
	m.registry.MustRegister(
		m.stageDuration,
		m.stageActive,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// StageStarted marks a stage call in flight.
func (m *Metrics) StageStarted(_ string, stage domain.Stage) {
	m.stageActive.WithLabelValues(stage.String()).Inc()
}

// StageFinished records the call's duration under its outcome.
func (m *Metrics) StageFinished(_ string, stage domain.Stage, elapsed time.Duration, err error) {
	m.stageActive.WithLabelValues(stage.String()).Dec()
	m.stageDuration.WithLabelValues(stage.String(), outcome(err)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// middleware counts requests by route pattern, not raw path.
func (m *Metrics) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		code := c.Response().Status
		if err != nil {
			code = statusFor(err)
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request().Method, route, strconv.Itoa(code)).Inc()
		return err
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
