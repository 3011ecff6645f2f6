package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/zres/pkg/domain"
)

// Metrics holds the build metrics on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	runs         *prometheus.CounterVec
	passes       prometheus.Counter
	invocations  *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	warnings     prometheus.Counter
	lastDuration prometheus.Gauge
	lastRun      prometheus.Gauge
}

// NewMetrics creates the build metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zres_runs_total",
				Help: "Total number of build runs by final status",
			},
			[]string{"status"},
		),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zres_passes_total",
			Help: "Total number of passes, final passes included",
		}),
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zres_tool_invocations_total",
				Help: "Total number of tool invocations",
			},
			[]string{"tool", "tier", "final", "result"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zres_tool_duration_seconds",
				Help:    "Duration of tool invocations",
				Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
			},
			[]string{"tool"},
		),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zres_warnings_total",
			Help: "Total number of warnings reported by tools and the engine",
		}),
		lastDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zres_last_run_duration_seconds",
			Help: "Duration of the last build run",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zres_last_run_timestamp_seconds",
			Help: "Unix time the last build run ended",
		}),
	}
	m.registry.MustRegister(m.runs, m.passes, m.invocations, m.toolDuration, m.warnings, m.lastDuration, m.lastRun)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Hooks returns lifecycle hooks that record the metrics.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPassStart: func(_ context.Context, _ *domain.PassEvent) {
			m.passes.Inc()
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			result := "ok"
			switch {
			case e.IsError:
				result = "error"
			case e.Delegated:
				result = "delegated"
			}
			m.invocations.WithLabelValues(e.Tool.Name, e.Tool.Tier.String(), strconv.FormatBool(e.Final), result).Inc()
			m.toolDuration.WithLabelValues(e.Tool.Name).Observe(e.Duration.Seconds())
		},
		OnWarning: func(_ context.Context, _ *domain.WarningEvent) {
			m.warnings.Inc()
		},
		OnRunDone: func(_ context.Context, e *domain.RunEvent) {
			m.runs.WithLabelValues(string(e.Report.Status)).Inc()
			m.lastDuration.Set(e.Report.Duration.Seconds())
			m.lastRun.Set(float64(e.Timestamp.Unix()))
		},
	}
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the metrics to path for the node exporter textfile
// collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
