package metrics

import (
	"net/http"

	"github.com/aeci-mmu/fieldforms/internal/application/port"
	"github.com/aeci-mmu/fieldforms/internal/domain/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fieldforms"

// Prometheus implements port.Metrics on a private registry
type Prometheus struct {
	registry *prometheus.Registry

	validations  *prometheus.CounterVec
	findings     *prometheus.CounterVec
	saves        *prometheus.CounterVec
	propagations *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them, together with the
// Go runtime and process collectors, on a fresh registry
func NewPrometheus() *Prometheus {
	m := &Prometheus{
		registry: prometheus.NewRegistry(),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Forms validated, by form type.",
		}, []string{"form_type"}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_findings_total",
			Help:      "Validation findings, by form type and severity.",
		}, []string{"form_type", "severity"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "form_saves_total",
			Help:      "Save attempts, by form type, requested status and outcome.",
		}, []string{"form_type", "status", "outcome"}),
		propagations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "propagations_total",
			Help:      "Propagation rule outcomes, by source type, target type and action.",
		}, []string{"source_type", "target_type", "action"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.validations,
		m.findings,
		m.saves,
		m.propagations,
	)
	return m
}

func (m *Prometheus) ObserveValidation(formType entity.FormType, findings []entity.ValidationFinding) {
	m.validations.WithLabelValues(string(formType)).Inc()
	for _, f := range findings {
		m.findings.WithLabelValues(string(formType), string(f.Severity)).Inc()
	}
}

func (m *Prometheus) ObserveSave(formType entity.FormType, status entity.FormStatus, outcome string) {
	m.saves.WithLabelValues(string(formType), string(status), outcome).Inc()
}

func (m *Prometheus) ObservePropagation(source, target entity.FormType, action string) {
	m.propagations.WithLabelValues(string(source), string(target), action).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

var _ port.Metrics = (*Prometheus)(nil)
