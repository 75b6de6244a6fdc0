package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements Collector on its own registry.
type Prometheus struct {
	reg           *prometheus.Registry
	registrations *prometheus.CounterVec
	resets        prometheus.Counter
	remaining     prometheus.Gauge
}

var _ Collector = (*Prometheus)(nil)

// NewPrometheus registers the collectors under namespace ("heroes" if empty)
// together with the Go runtime and process collectors.
func NewPrometheus(namespace string) *Prometheus {
	if namespace == "" {
		namespace = "heroes"
	}
	p := &Prometheus{
		reg: prometheus.NewRegistry(),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by result.",
		}, []string{"result"}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Completed pool resets.",
		}),
		remaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_remaining",
			Help:      "Heroes not yet assigned.",
		}),
	}
	p.reg.MustRegister(
		p.registrations,
		p.resets,
		p.remaining,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) RecordRegistration(result string) {
	p.registrations.WithLabelValues(result).Inc()
}

func (p *Prometheus) RecordReset() { p.resets.Inc() }

func (p *Prometheus) SetRemaining(n int) { p.remaining.Set(float64(n)) }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{Registry: p.reg})
}

func (p *Prometheus) Registry() *prometheus.Registry { return p.reg }
