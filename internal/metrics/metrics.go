package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics captures dispatch, probe, update and RPC activity.
type Metrics interface {
	ObserveDispatch(prefix, status string, durationSeconds float64)
	IncToolProbe(tool string, available bool)
	IncUpdate(kind, status string)
	IncRPC(method, status string)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) ObserveDispatch(string, string, float64) {}
func (Noop) IncToolProbe(string, bool)               {}
func (Noop) IncUpdate(string, string)                {}
func (Noop) IncRPC(string, string)                   {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	dispatched *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	probes     *prometheus.CounterVec
	updates    *prometheus.CounterVec
	rpc        *prometheus.CounterVec

	registry *prometheus.Registry
	once     sync.Once
}

// NewProm creates the collectors and registers them on a private registry.
func NewProm(namespace string) *Prom {
	p := &Prom{
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_dispatched_total",
			Help:      "Commands dispatched by prefix and envelope status",
		}, []string{"prefix", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command dispatch latency by prefix",
			Buckets:   prometheus.DefBuckets,
		}, []string{"prefix"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_probes_total",
			Help:      "Tool availability probes by tool and result",
		}, []string{"tool", "result"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Updater runs by kind and envelope status",
		}, []string{"kind", "status"}),
		rpc: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_calls_total",
			Help:      "RPC calls by method and outcome",
		}, []string{"method", "status"}),
		registry: prometheus.NewRegistry(),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		p.registry.MustRegister(p.dispatched, p.duration, p.probes, p.updates, p.rpc)
	})
}

// Registry exposes the underlying registry, mainly for tests.
func (p *Prom) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus text format.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prom) ObserveDispatch(prefix, status string, durationSeconds float64) {
	p.dispatched.WithLabelValues(prefix, status).Inc()
	p.duration.WithLabelValues(prefix).Observe(durationSeconds)
}

func (p *Prom) IncToolProbe(tool string, available bool) {
	result := "unavailable"
	if available {
		result = "available"
	}
	p.probes.WithLabelValues(tool, result).Inc()
}

func (p *Prom) IncUpdate(kind, status string) {
	p.updates.WithLabelValues(kind, status).Inc()
}

func (p *Prom) IncRPC(method, status string) {
	p.rpc.WithLabelValues(method, status).Inc()
}

// Prefix returns the label used for a command name: its first dotted
// segment, or the first two for shell and tool namespaces.
func Prefix(name string) string {
	parts := strings.SplitN(name, ".", 3)
	switch {
	case len(parts) == 0 || parts[0] == "":
		return "unknown"
	case parts[0] == "tool" && len(parts) >= 2:
		return parts[0] + "." + parts[1]
	default:
		return parts[0]
	}
}
