// Package telemetry groups the observability building blocks of the engine:
//
//   - logging: slog construction with PII redaction and execution context
//   - metrics: Prometheus collector for runs, nodes, screening and monitoring
//   - tracing: OpenTelemetry tracer provider (noop or OTLP/gRPC)
//   - health: liveness and readiness endpoints for serve mode
package telemetry
