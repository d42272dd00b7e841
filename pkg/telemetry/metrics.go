package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Metrics mirrors the in-memory aggregates as Prometheus collectors and
// exposes pipeline health. A nil *Metrics is valid and records nothing.
type Metrics struct {
	config MetricsConfig

	// Interaction metrics
	interactions       *prometheus.CounterVec
	commandInvocations *prometheus.CounterVec

	// Completion metrics
	completions     *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	commandFailures *prometheus.CounterVec
	errorsByType    *prometheus.CounterVec

	// Pipeline metrics
	eventsEnqueued       prometheus.Counter
	eventsDropped        prometheus.Counter
	eventsDispatched     *prometheus.CounterVec
	eventsDispatchErrors prometheus.Counter
	correlationsReaped   prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
// Collectors are always registered; Enabled only controls the HTTP server.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	namespace := cfg.Namespace
	buckets := cfg.LatencyBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		interactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "interactions_total",
				Help:      "Total number of user interactions by interaction type",
			},
			[]string{"type"},
		),
		commandInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "command_invocations_total",
				Help:      "Total number of interactions that named a command or component",
			},
			[]string{"command"},
		),

		completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "command_completions_total",
				Help:      "Total number of command completions by status",
			},
			[]string{"status"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Time from interaction to completion or failure in seconds",
				Buckets:   buckets,
			},
			[]string{"command"},
		),
		commandFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "command_failures_total",
				Help:      "Total number of failed commands by command and status",
			},
			[]string{"command", "status"},
		),
		errorsByType: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "command_errors_total",
				Help:      "Total number of command errors by error type",
			},
			[]string{"error_type"},
		),

		eventsEnqueued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "telemetry",
				Name:      "events_enqueued_total",
				Help:      "Total number of events accepted by the telemetry queue",
			},
		),
		eventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "telemetry",
				Name:      "events_dropped_total",
				Help:      "Total number of events dropped because the telemetry queue was full",
			},
		),
		eventsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "telemetry",
				Name:      "events_dispatched_total",
				Help:      "Total number of events dispatched by the consumer by kind",
			},
			[]string{"kind"},
		),
		eventsDispatchErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "telemetry",
				Name:      "events_dispatch_errors_total",
				Help:      "Total number of events that failed during dispatch",
			},
		),
		correlationsReaped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "telemetry",
				Name:      "correlations_reaped_total",
				Help:      "Total number of stale pending correlations removed by the reaper",
			},
		),
	}

	registry.MustRegister(
		m.interactions,
		m.commandInvocations,
		m.completions,
		m.commandDuration,
		m.commandFailures,
		m.errorsByType,
		m.eventsEnqueued,
		m.eventsDropped,
		m.eventsDispatched,
		m.eventsDispatchErrors,
		m.correlationsReaped,
	)

	return m, nil
}

// Interaction Metrics

// RecordInteraction counts one interaction. command may be empty.
func (m *Metrics) RecordInteraction(interactionType, command string) {
	if m == nil || m.interactions == nil {
		return
	}
	m.interactions.WithLabelValues(interactionType).Inc()
	if command != "" {
		m.commandInvocations.WithLabelValues(command).Inc()
	}
}

// Completion Metrics

// RecordCompletion counts a completion or failure. A negative duration
// means none was measured.
func (m *Metrics) RecordCompletion(command, status string, duration time.Duration, errorType string) {
	if m == nil || m.completions == nil {
		return
	}
	m.completions.WithLabelValues(status).Inc()
	if duration >= 0 {
		m.commandDuration.WithLabelValues(command).Observe(duration.Seconds())
	}
	if status != "success" {
		m.commandFailures.WithLabelValues(command, status).Inc()
	}
	if errorType != "" {
		m.errorsByType.WithLabelValues(errorType).Inc()
	}
}

// Pipeline Metrics

// RecordEnqueued counts an event accepted by the queue.
func (m *Metrics) RecordEnqueued() {
	if m == nil || m.eventsEnqueued == nil {
		return
	}
	m.eventsEnqueued.Inc()
}

// RecordDropped counts an event dropped by a full queue.
func (m *Metrics) RecordDropped() {
	if m == nil || m.eventsDropped == nil {
		return
	}
	m.eventsDropped.Inc()
}

// RecordDispatched counts an event handled by the consumer.
func (m *Metrics) RecordDispatched(kind string) {
	if m == nil || m.eventsDispatched == nil {
		return
	}
	m.eventsDispatched.WithLabelValues(kind).Inc()
}

// RecordDispatchError counts an event whose dispatch failed.
func (m *Metrics) RecordDispatchError() {
	if m == nil || m.eventsDispatchErrors == nil {
		return
	}
	m.eventsDispatchErrors.Inc()
}

// RecordReaped counts stale correlations removed by the reaper.
func (m *Metrics) RecordReaped(n int) {
	if m == nil || m.correlationsReaped == nil || n <= 0 {
		return
	}
	m.correlationsReaped.Add(float64(n))
}

// ErrMetricRegistered is returned when a gauge name is already taken in
// the registry.
var ErrMetricRegistered = errors.New("metric already registered")

// RegisterGaugeFunc exposes a value sampled at scrape time, such as the
// queue depth or the number of pending correlations.
func (m *Metrics) RegisterGaugeFunc(name, help string, fn func() float64) error {
	if m == nil || m.registry == nil {
		return nil
	}
	err := m.registry.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Subsystem: "telemetry",
			Name:      name,
			Help:      help,
		},
		fn,
	))
	var dup prometheus.AlreadyRegisteredError
	if errors.As(err, &dup) {
		return fmt.Errorf("%w: %s", ErrMetricRegistered, name)
	}
	return err
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return otelhttp.NewHandler(
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}),
		"metrics.scrape",
	)
}

// MetricsServer is a running metrics HTTP endpoint.
type MetricsServer struct {
	server *http.Server
}

// StartMetricsServer starts an HTTP server to expose metrics. It returns
// nil when metrics are disabled.
func (m *Metrics) StartMetricsServer(logger *Logger) *MetricsServer {
	if m == nil || !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	ms := &MetricsServer{
		server: &http.Server{
			Addr:              m.config.ListenAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	go func() {
		err := ms.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Metrics server stopped unexpectedly")
		}
	}()

	logger.Infof("Serving metrics on %s%s", m.config.ListenAddress, m.config.Path)
	return ms
}

// Shutdown stops the metrics server.
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	if ms == nil {
		return nil
	}
	return ms.server.Shutdown(ctx)
}
