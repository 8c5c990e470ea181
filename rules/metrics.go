package rules

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/liamcoop/arules/schema"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
	resultError   = "error"
)

// Metrics holds Prometheus metrics for an Engine.
// A nil *Metrics records nothing.
type Metrics struct {
	dispatchesTotal  *prometheus.CounterVec
	evaluationsTotal *prometheus.CounterVec
	actionsTotal     *prometheus.CounterVec
	actionDuration   *prometheus.HistogramVec
	rulesDefined     prometheus.Gauge
}

// NewMetrics creates engine metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		dispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arules",
			Subsystem: "engine",
			Name:      "dispatches_total",
			Help:      "Total dispatch calls per trigger",
		}, []string{"schema", "event"}),

		evaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arules",
			Subsystem: "engine",
			Name:      "evaluations_total",
			Help:      "Total rule evaluations by outcome",
		}, []string{"rule_name", "result"}),

		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arules",
			Subsystem: "engine",
			Name:      "actions_total",
			Help:      "Total rule actions invoked",
		}, []string{"rule_name"}),

		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arules",
			Subsystem: "engine",
			Name:      "action_duration_seconds",
			Help:      "Time spent running rule actions",
			Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"rule_name"}),

		rulesDefined: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arules",
			Subsystem: "engine",
			Name:      "rules_defined",
			Help:      "Number of rules currently in the store",
		}),
	}

	collectors := []prometheus.Collector{
		m.dispatchesTotal,
		m.evaluationsTotal,
		m.actionsTotal,
		m.actionDuration,
		m.rulesDefined,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) recordDispatch(trigger schema.Trigger) {
	if m == nil {
		return
	}
	m.dispatchesTotal.WithLabelValues(trigger.Schema, trigger.Event).Inc()
}

func (m *Metrics) recordEvaluation(rule *Rule, result string) {
	if m == nil {
		return
	}
	m.evaluationsTotal.WithLabelValues(rule.Name, result).Inc()
}

func (m *Metrics) recordAction(rule *Rule, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.actionsTotal.WithLabelValues(rule.Name).Inc()
	m.actionDuration.WithLabelValues(rule.Name).Observe(elapsed.Seconds())
}

func (m *Metrics) setRulesDefined(n int) {
	if m == nil {
		return
	}
	m.rulesDefined.Set(float64(n))
}
