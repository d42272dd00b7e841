package telemetry

import (
	"context"
	"errors"
	"testing"
)

func TestDisabledTracerIsNoop(t *testing.T) {
	tracer, err := NewTracer(DefaultConfig().Tracing, "capy", "test", "test")
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}

	ctx, span := tracer.StartConsumerTickSpan(context.Background(), 3)
	RecordError(span, errors.New("boom"))
	span.End()

	if span.IsRecording() {
		t.Error("noop span should not record")
	}
	if TraceID(ctx) != "" {
		t.Error("noop span should not carry a trace id")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestTracerWithoutExporterRecordsSpans(t *testing.T) {
	cfg := DefaultConfig().Tracing
	cfg.Enabled = true
	cfg.Exporter = "none"

	tracer, err := NewTracer(cfg, "capy", "test", "test")
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}
	defer func() { _ = tracer.Shutdown(context.Background()) }()

	ctx, span := tracer.StartFailureSpan(context.Background(), "abc123def456", "ping", "internal_error")
	defer span.End()

	if !span.IsRecording() {
		t.Error("expected span to record")
	}
	if TraceID(ctx) == "" {
		t.Error("expected a trace id")
	}
}

func TestTracerRejectsUnknownExporter(t *testing.T) {
	cfg := DefaultConfig().Tracing
	cfg.Enabled = true
	cfg.Exporter = "zipkin"

	if _, err := NewTracer(cfg, "capy", "test", "test"); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}
