package status

import (
	"strings"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports a Registry as prometheus gauges
// Metric names are derived from keys: "memory.texture.ratio" -> "<ns>_memory_texture_ratio"
// String metrics are exported as an info-style gauge with a value label
type Collector struct {
	reg       *Registry
	namespace string
}

// NewCollector creates a collector over reg
func NewCollector(reg *Registry, namespace string) *Collector {
	return &Collector{reg: reg, namespace: namespace}
}

// Describe is intentionally empty, making this an unchecked collector
// The metric set grows as components register keys
func (c *Collector) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.reg.Ints.Range(func(key string, ptr *atomic.Int64) {
		ch <- c.gauge(key, float64(ptr.Load()))
	})
	c.reg.Floats.Range(func(key string, ptr *AtomicFloat) {
		ch <- c.gauge(key, ptr.Get())
	})
	c.reg.Bools.Range(func(key string, ptr *atomic.Bool) {
		var v float64
		if ptr.Load() {
			v = 1
		}
		ch <- c.gauge(key, v)
	})
	c.reg.Strings.Range(func(key string, ptr *AtomicString) {
		desc := prometheus.NewDesc(c.metricName(key), "status string "+key, []string{"value"}, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, 1, ptr.Load())
	})
}

func (c *Collector) gauge(key string, v float64) prometheus.Metric {
	desc := prometheus.NewDesc(c.metricName(key), "status metric "+key, nil, nil)
	return prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v)
}

func (c *Collector) metricName(key string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
	if c.namespace == "" {
		return name
	}
	return c.namespace + "_" + name
}
