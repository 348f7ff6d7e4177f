// Package metrics exposes redemption counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/azizikri/qr-credits/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Recorder struct {
	registry *prometheus.Registry
	outcomes *prometheus.CounterVec
	credits  *prometheus.CounterVec
}

func NewRecorder(namespace string) *Recorder {
	if namespace == "" {
		namespace = "credits"
	}
	registry := prometheus.NewRegistry()
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_outcomes_total",
		Help:      "Scan submissions and ledger clears by outcome and policy.",
	}, []string{"outcome", "policy"})
	credits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credits_awarded_total",
		Help:      "Credits added to ledgers by accepted scans.",
	}, []string{"policy"})
	registry.MustRegister(outcomes, credits)

	return &Recorder{
		registry: registry,
		outcomes: outcomes,
		credits:  credits,
	}
}

func (r *Recorder) ObserveOutcome(policy domain.Policy, outcome domain.Outcome) {
	r.outcomes.WithLabelValues(string(outcome.Kind), policy.Name).Inc()
	if outcome.Accepted() {
		r.credits.WithLabelValues(policy.Name).Add(float64(outcome.Credit))
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
