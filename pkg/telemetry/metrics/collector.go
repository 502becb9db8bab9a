package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/config"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/monitoring"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/screening"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow/runtime"
)

// Collector owns the engine's Prometheus metrics. A disabled collector
// accepts every observation and records nothing.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	workflow   *WorkflowMetrics
	screening  *ScreeningMetrics
	monitoring *MonitoringMetrics
}

var (
	_ runtime.Observer    = (*Collector)(nil)
	_ screening.Observer  = (*Collector)(nil)
	_ monitoring.Observer = (*Collector)(nil)
)

// NewCollector creates a collector registered with registry. A nil registry
// gets a fresh one.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		config:     cfg,
		registry:   registry,
		workflow:   NewWorkflowMetrics(cfg.Namespace, registry),
		screening:  NewScreeningMetrics(cfg.Namespace, registry),
		monitoring: NewMonitoringMetrics(cfg.Namespace, registry),
	}
}

// Registry returns the registry metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveRun records a finished workflow run.
func (c *Collector) ObserveRun(status runtime.Status, reason runtime.RouteReason, steps int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.workflow.observeRun(string(status), string(reason), steps, duration)
}

// ObserveNode records one node step.
func (c *Collector) ObserveNode(nodeType workflow.NodeType, outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.workflow.observeNode(string(nodeType), outcome, duration)
}

// ObserveScreening records one AML screening call.
func (c *Collector) ObserveScreening(list screening.ListType, source screening.Source, hit bool) {
	if !c.config.Enabled {
		return
	}
	c.screening.observe(string(list), string(source), hit)
}

// ObserveDuplicates records duplicates found by the dedup stage.
func (c *Collector) ObserveDuplicates(behavior monitoring.DuplicateBehavior, n int) {
	if !c.config.Enabled || n == 0 {
		return
	}
	c.monitoring.duplicates.WithLabelValues(string(behavior)).Add(float64(n))
}

// ObserveRuleHit records one scenario rule hit.
func (c *Collector) ObserveRuleHit(ruleType monitoring.ScenarioType, severity monitoring.Severity) {
	if !c.config.Enabled {
		return
	}
	c.monitoring.ruleHits.WithLabelValues(string(ruleType), string(severity)).Inc()
}

// ObserveAlerts records alerts created and grouped into existing alerts.
func (c *Collector) ObserveAlerts(created, updated int) {
	if !c.config.Enabled {
		return
	}
	if created > 0 {
		c.monitoring.alerts.WithLabelValues("created").Add(float64(created))
	}
	if updated > 0 {
		c.monitoring.alerts.WithLabelValues("grouped").Add(float64(updated))
	}
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
