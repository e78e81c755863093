package status

import (
	"slices"
	"sync"
)

// MetricMap holds one named metric cell per key
// Components look a cell up once at construction and write it lock-free on
// every tick; only registration and export take the lock
type MetricMap[T any] struct {
	mu    sync.RWMutex
	cells map[string]*T
}

// NewMetricMap creates an empty map
func NewMetricMap[T any]() *MetricMap[T] {
	return &MetricMap[T]{cells: make(map[string]*T)}
}

// Get returns the cell for key, registering a zero cell on first use
func (m *MetricMap[T]) Get(key string) *T {
	m.mu.RLock()
	cell, ok := m.cells[key]
	m.mu.RUnlock()
	if ok {
		return cell
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cell, ok = m.cells[key]; !ok {
		cell = new(T)
		m.cells[key] = cell
	}
	return cell
}

// Has reports whether key is registered
func (m *MetricMap[T]) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.cells[key]
	return ok
}

// Delete unregisters key; a cell already held by a component keeps working but is no longer exported
func (m *MetricMap[T]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cells, key)
}

// Keys returns registered keys sorted
func (m *MetricMap[T]) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedKeys()
}

// Range visits every cell in key order, used by snapshots and the exporter
func (m *MetricMap[T]) Range(fn func(key string, cell *T)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, k := range m.sortedKeys() {
		fn(k, m.cells[k])
	}
}

// Count returns the number of registered cells
func (m *MetricMap[T]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cells)
}

func (m *MetricMap[T]) sortedKeys() []string {
	keys := make([]string, 0, len(m.cells))
	for k := range m.cells {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
