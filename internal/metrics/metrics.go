package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	Transitions *prometheus.CounterVec
	Settlements *prometheus.CounterVec
	Events      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_order_transitions_total",
			Help: "Order status transition attempts by edge and outcome.",
		}, []string{"from", "to", "outcome"}),
		Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_settlements_total",
			Help: "Order settlements by payment method and outcome.",
		}, []string{"payment_method", "outcome"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketplace_status_events_total",
			Help: "Status-change events by sink and outcome.",
		}, []string{"sink", "outcome"}),
	}

	m.registry.MustRegister(m.Transitions, m.Settlements, m.Events)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
