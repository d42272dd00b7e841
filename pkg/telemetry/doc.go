// Package telemetry provides the ambient observability stack for the bot.
//
// The package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry) and metrics (Prometheus) behind one configuration that can
// be loaded from YAML, overridden from the environment and validated.
//
// # Architecture
//
//  1. Structured Logging - an application logger and a separate event log sink
//  2. Distributed Tracing - OpenTelemetry spans around the event consumer
//  3. Metrics Collection - Prometheus mirrors of the interaction aggregates
//  4. Configuration - YAML file, CAPY_ environment variables, hot reload
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg, err := telemetry.LoadConfig("capy.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	tel.StartMetricsServer()
//
// # Configuration
//
// Every field can be set from the environment. Nested sections use their
// section name as a prefix:
//
//	CAPY_LOGGING_LEVEL=debug
//	CAPY_PIPELINE_QUEUE_CAPACITY=5000
//	CAPY_PIPELINE_FLUSH_INTERVAL=500ms
//	CAPY_METRICS_ENABLED=true
//
// A Watcher reloads the YAML file on change; ApplyLogLevels re-applies the
// log levels without restarting the bot.
//
// # Metrics
//
// All Metrics methods accept a nil receiver, so components can be built
// without metrics in tests.
package telemetry
