// Package metrics exposes engine activity as Prometheus metrics.
//
// A Collector implements the observer interfaces of the interpreter
// (runtime.Observer), the AML screener (screening.Observer) and the
// monitoring pipeline (monitoring.Observer), so wiring it is a matter of
// passing the same value to each:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	interp := runtime.NewInterpreter(reg, runtime.Options{Observer: collector})
//	screener.SetObserver(collector)
//	pipeline.SetObserver(collector)
//	http.Handle("/metrics", collector.Handler())
//
// Metrics (namespace "kycaml" by default):
//   - workflow_runs_total{status,route_reason}
//   - workflow_run_duration_seconds{status}
//   - workflow_run_steps
//   - node_executions_total{node_type,outcome}
//   - node_duration_seconds{node_type}
//   - screenings_total{list,source,hit}
//   - tm_duplicates_total{behavior}
//   - tm_rule_hits_total{rule_type,severity}
//   - tm_alerts_total{action}
package metrics
