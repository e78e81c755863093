// Package status is the lock-free telemetry facade of the governor
// Components cache metric pointers at construction and store into them from the
// tick thread; readers on other goroutines (HTTP, dashboard) load atomically
package status

import "sync/atomic"

// Registry groups typed metric maps
type Registry struct {
	Bools   *MetricMap[atomic.Bool]
	Ints    *MetricMap[atomic.Int64]
	Floats  *MetricMap[AtomicFloat]
	Strings *MetricMap[AtomicString]
}

// NewRegistry creates an initialized Registry
func NewRegistry() *Registry {
	return &Registry{
		Bools:   NewMetricMap[atomic.Bool](),
		Ints:    NewMetricMap[atomic.Int64](),
		Floats:  NewMetricMap[AtomicFloat](),
		Strings: NewMetricMap[AtomicString](),
	}
}

// OrNew returns r, or a fresh private registry when r is nil
func OrNew(r *Registry) *Registry {
	if r == nil {
		return NewRegistry()
	}
	return r
}

// TotalCount returns total metrics across all types
func (r *Registry) TotalCount() int {
	return r.Bools.Count() + r.Ints.Count() + r.Floats.Count() + r.Strings.Count()
}

// Snapshot copies every metric into a flat map keyed by metric name
func (r *Registry) Snapshot() map[string]any {
	out := make(map[string]any, r.TotalCount())
	r.Bools.Range(func(key string, ptr *atomic.Bool) { out[key] = ptr.Load() })
	r.Ints.Range(func(key string, ptr *atomic.Int64) { out[key] = ptr.Load() })
	r.Floats.Range(func(key string, ptr *AtomicFloat) { out[key] = ptr.Get() })
	r.Strings.Range(func(key string, ptr *AtomicString) { out[key] = ptr.Load() })
	return out
}
