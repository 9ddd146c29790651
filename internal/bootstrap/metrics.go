package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ohsansi/olympiad-console/config"
	"github.com/ohsansi/olympiad-console/internal/observability/metrics"
	"github.com/ohsansi/olympiad-console/internal/observability/statsd"
	"github.com/ohsansi/olympiad-console/internal/ports"
)

// ObservabilityContainer groups the metrics sinks shared by the auth core.
type ObservabilityContainer struct {
	// Recorder fans auth events out to every enabled sink (metrics.Nop when none).
	Recorder ports.AuthMetrics
	// Handler serves the Prometheus registry; nil when Prometheus is disabled.
	Handler     http.Handler
	MetricsSink *statsd.Client
}

// Close releases the StatsD connection.
func (o ObservabilityContainer) Close() error {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink.Close()
}

// BuildObservability wires the enabled metrics sinks. A nil registry gets a
// fresh one with the Go and process collectors registered.
// A StatsD agent that cannot be reached is logged and skipped.
func BuildObservability(logger *slog.Logger, cfg config.ObservabilityConfig, registry *prometheus.Registry) (ObservabilityContainer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		out       ObservabilityContainer
		recorders metrics.Multi
	)

	if cfg.Prometheus.Enabled {
		if registry == nil {
			registry = prometheus.NewRegistry()
			if err := registry.Register(collectors.NewGoCollector()); err != nil {
				return out, fmt.Errorf("register go collector: %w", err)
			}
			if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
				return out, fmt.Errorf("register process collector: %w", err)
			}
		}
		recorders = append(recorders, metrics.NewPrometheus(
			metrics.WithNamespace(cfg.Prometheus.Namespace),
			metrics.WithRegistry(registry),
		))
		out.Handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	}

	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.Prefix,
			Logger:  logger,
		})
		if err != nil {
			logger.Error("failed to initialise statsd client", "error", err)
		} else {
			out.MetricsSink = client
			recorders = append(recorders, metrics.NewStatsD(client))
		}
	}

	switch len(recorders) {
	case 0:
		out.Recorder = metrics.Nop{}
	case 1:
		out.Recorder = recorders[0]
	default:
		out.Recorder = recorders
	}
	return out, nil
}
