package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes cache activity to prometheus. A nil *Metrics records
// nothing.
type Metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	inUse     prometheus.Gauge
	idle      prometheus.Gauge
}

// NewMetrics creates the cache collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aff4",
			Subsystem: "object_cache",
			Name:      "hits_total",
			Help:      "Cache lookups that returned a live instance",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aff4",
			Subsystem: "object_cache",
			Name:      "misses_total",
			Help:      "Cache lookups that found no instance",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aff4",
			Subsystem: "object_cache",
			Name:      "evictions_total",
			Help:      "Idle objects trimmed from the LRU ring",
		}),
		inUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aff4",
			Subsystem: "object_cache",
			Name:      "in_use",
			Help:      "Objects currently pinned by callers",
		}),
		idle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aff4",
			Subsystem: "object_cache",
			Name:      "idle",
			Help:      "Objects held in the idle LRU ring",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.evictions, m.inUse, m.idle)
	}
	return m
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) evict() {
	if m != nil {
		m.evictions.Inc()
	}
}

func (m *Metrics) set(inUse, idle int) {
	if m != nil {
		m.inUse.Set(float64(inUse))
		m.idle.Set(float64(idle))
	}
}
