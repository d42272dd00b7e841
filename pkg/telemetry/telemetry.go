package telemetry

import (
	"context"
	"errors"
)

// Telemetry bundles the ambient observability handles: the application
// logger, the dedicated event log sink, the tracer and Prometheus metrics.
type Telemetry struct {
	Logger      *Logger
	EventLogger *Logger
	Tracer      *Tracer
	Metrics     *Metrics
	Config      *Config

	metricsServer *MetricsServer
}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	eventLogger, err := NewLogger(cfg.Pipeline.EventLog)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:      logger,
		EventLogger: eventLogger.NewComponentLogger("telemetry-events"),
		Tracer:      tracer,
		Metrics:     metrics,
		Config:      cfg,
	}, nil
}

// NewNopTelemetry returns telemetry that discards logs and spans. Metrics
// are still collected in a private registry.
func NewNopTelemetry() *Telemetry {
	cfg := DefaultConfig()
	metrics, _ := NewMetrics(cfg.Metrics)
	return &Telemetry{
		Logger:      NewNopLogger(),
		EventLogger: NewNopLogger(),
		Tracer:      NewNopTracer(),
		Metrics:     metrics,
		Config:      cfg,
	}
}

// StartMetricsServer starts the metrics HTTP server if metrics are enabled.
func (t *Telemetry) StartMetricsServer() {
	t.metricsServer = t.Metrics.StartMetricsServer(t.Logger)
}

// Shutdown gracefully shuts down all telemetry components.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if err := t.metricsServer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := t.Tracer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Flush forces all pending telemetry data to be exported.
func (t *Telemetry) Flush(ctx context.Context) error {
	return t.Tracer.ForceFlush(ctx)
}
