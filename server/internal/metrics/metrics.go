package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultEmpty = "empty" // FindOrCreate created a repository with no persisted state
)

// Metrics holds the registry instruments and the prometheus.Registry they are
// registered with.
type Metrics struct {
	reg *prometheus.Registry

	loads   *prometheus.CounterVec
	flushes *prometheus.CounterVec
	purges  *prometheus.CounterVec
	prunes  *prometheus.CounterVec
	cached  prometheus.Gauge
	lastRun *prometheus.GaugeVec
}

// New creates the instruments on a fresh registry. The Go runtime and process
// collectors are included so /metrics is useful on its own.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tlb", Subsystem: "repo", Name: "loads_total",
			Help: "Repositories instantiated by FindOrCreate, by load result.",
		}, []string{"result"}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tlb", Subsystem: "repo", Name: "flush_writes_total",
			Help: "Dirty repositories written to the store, by result.",
		}, []string{"result"}),
		purges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tlb", Subsystem: "repo", Name: "purges_total",
			Help: "Repositories purged from cache and store, by result.",
		}, []string{"result"}),
		prunes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tlb", Subsystem: "repo", Name: "prunes_total",
			Help: "Versioned repositories asked to prune old versions, by result.",
		}, []string{"result"}),
		cached: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tlb", Subsystem: "repo", Name: "cached",
			Help: "Repositories currently held in the registry cache.",
		}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tlb", Subsystem: "scheduler", Name: "last_run_timestamp_seconds",
			Help: "Unix time of the last completed scheduled task.",
		}, []string{"task"}),
	}
	reg.MustRegister(
		m.loads, m.flushes, m.purges, m.prunes, m.cached, m.lastRun,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying prometheus registry (used by tests).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// ObserveLoad counts a repository instantiation. empty marks a fresh
// repository with nothing in the store.
func (m *Metrics) ObserveLoad(empty bool, err error) {
	if m == nil {
		return
	}
	r := result(err)
	if err == nil && empty {
		r = ResultEmpty
	}
	m.loads.WithLabelValues(r).Inc()
}

// ObserveFlush counts one repository write attempt.
func (m *Metrics) ObserveFlush(err error) {
	if m == nil {
		return
	}
	m.flushes.WithLabelValues(result(err)).Inc()
}

// ObservePurge counts one purge.
func (m *Metrics) ObservePurge(err error) {
	if m == nil {
		return
	}
	m.purges.WithLabelValues(result(err)).Inc()
}

// ObservePrune counts one Prune call on a versioned repository.
func (m *Metrics) ObservePrune(err error) {
	if m == nil {
		return
	}
	m.prunes.WithLabelValues(result(err)).Inc()
}

// SetCached records the current cache size.
func (m *Metrics) SetCached(n int) {
	if m == nil {
		return
	}
	m.cached.Set(float64(n))
}

// MarkRun records the completion time of a scheduled task ("flush", "prune").
func (m *Metrics) MarkRun(task string, unixSeconds float64) {
	if m == nil {
		return
	}
	m.lastRun.WithLabelValues(task).Set(unixSeconds)
}
