// Package tracing builds the OpenTelemetry tracer used by the interpreter.
//
// With tracing disabled the tracer is a noop and spans cost almost nothing.
// Enabled, spans are batched to an OTLP/gRPC collector and sampled by trace
// id ratio, respecting the parent's decision:
//
//	t, err := tracing.New(&cfg.Telemetry.Tracing)
//	defer t.Shutdown(ctx)
//	interp := runtime.NewInterpreter(reg, runtime.Options{Tracer: t.Tracer()})
//
// Each run produces a "workflow.execute" span with one child span per node
// step.
package tracing
