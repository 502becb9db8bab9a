package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics tracks runs and node steps.
type WorkflowMetrics struct {
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	runSteps      prometheus.Histogram
	nodesTotal    *prometheus.CounterVec
	nodeDurations *prometheus.HistogramVec
}

// NewWorkflowMetrics creates and registers run and node metrics.
func NewWorkflowMetrics(namespace string, registry *prometheus.Registry) *WorkflowMetrics {
	wm := &WorkflowMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflow_runs_total",
				Help:      "Total number of workflow runs by final status",
			},
			[]string{"status", "route_reason"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "workflow_run_duration_seconds",
				Help:      "Duration of workflow runs in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
			},
			[]string{"status"},
		),
		runSteps: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "workflow_run_steps",
				Help:      "Number of nodes visited per run",
				Buckets:   []float64{1, 2, 5, 10, 20, 50},
			},
		),
		nodesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_executions_total",
				Help:      "Total number of node steps by type and outcome",
			},
			[]string{"node_type", "outcome"},
		),
		nodeDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_duration_seconds",
				Help:      "Duration of node handlers in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 2},
			},
			[]string{"node_type"},
		),
	}

	registry.MustRegister(wm.runsTotal, wm.runDuration, wm.runSteps, wm.nodesTotal, wm.nodeDurations)
	return wm
}

func (wm *WorkflowMetrics) observeRun(status, reason string, steps int, duration time.Duration) {
	wm.runsTotal.WithLabelValues(status, reason).Inc()
	wm.runDuration.WithLabelValues(status).Observe(duration.Seconds())
	wm.runSteps.Observe(float64(steps))
}

func (wm *WorkflowMetrics) observeNode(nodeType, outcome string, duration time.Duration) {
	wm.nodesTotal.WithLabelValues(nodeType, outcome).Inc()
	wm.nodeDurations.WithLabelValues(nodeType).Observe(duration.Seconds())
}

// ScreeningMetrics tracks AML screening calls.
type ScreeningMetrics struct {
	screenings *prometheus.CounterVec
}

// NewScreeningMetrics creates and registers screening metrics.
func NewScreeningMetrics(namespace string, registry *prometheus.Registry) *ScreeningMetrics {
	sm := &ScreeningMetrics{
		screenings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "screenings_total",
				Help:      "Total number of AML screenings by list, result source and hit",
			},
			[]string{"list", "source", "hit"},
		),
	}
	registry.MustRegister(sm.screenings)
	return sm
}

func (sm *ScreeningMetrics) observe(list, source string, hit bool) {
	sm.screenings.WithLabelValues(list, source, strconv.FormatBool(hit)).Inc()
}

// MonitoringMetrics tracks the transaction monitoring stages.
type MonitoringMetrics struct {
	duplicates *prometheus.CounterVec
	ruleHits   *prometheus.CounterVec
	alerts     *prometheus.CounterVec
}

// NewMonitoringMetrics creates and registers monitoring metrics.
func NewMonitoringMetrics(namespace string, registry *prometheus.Registry) *MonitoringMetrics {
	mm := &MonitoringMetrics{
		duplicates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tm_duplicates_total",
				Help:      "Duplicate transactions detected by configured behavior",
			},
			[]string{"behavior"},
		),
		ruleHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tm_rule_hits_total",
				Help:      "Scenario rule hits by rule type and severity",
			},
			[]string{"rule_type", "severity"},
		),
		alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tm_alerts_total",
				Help:      "Alerts created or grouped into an active alert",
			},
			[]string{"action"},
		),
	}
	registry.MustRegister(mm.duplicates, mm.ruleHits, mm.alerts)
	return mm
}
