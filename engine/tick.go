// Package engine runs governor systems on a single tick thread
package engine

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lixenwraith/perfgov/clock"
	"github.com/lixenwraith/perfgov/event"
	"github.com/lixenwraith/perfgov/status"
)

// System is a unit of per-tick work
type System interface {
	Name() string
	Priority() int // Lower values run first
	Update(dt time.Duration)
}

// Engine owns the system list and the per-tick ordering
// Tick order: timer scheduler, systems by priority, then queued events to the bus
type Engine struct {
	mu      sync.Mutex
	sched   *clock.Scheduler
	queue   *event.Queue
	bus     *event.Bus
	logger  *zap.Logger
	systems []System
	frame   int64

	statTicks    *atomic.Int64
	statTickTime *status.AtomicFloat
	statTickMax  *status.AtomicFloat
	statEvents   *atomic.Int64
	statDropped  *atomic.Int64
}

// New creates an engine; sched, queue and bus may be nil
func New(sched *clock.Scheduler, queue *event.Queue, bus *event.Bus, reg *status.Registry, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg = status.OrNew(reg)
	return &Engine{
		sched:  sched,
		queue:  queue,
		bus:    bus,
		logger: logger.With(zap.String("module", "engine")),

		statTicks:    reg.Ints.Get("engine.ticks"),
		statTickTime: reg.Floats.Get("engine.tick_ms"),
		statTickMax:  reg.Floats.Get("engine.tick_ms_max"),
		statEvents:   reg.Ints.Get("engine.events_total"),
		statDropped:  reg.Ints.Get("engine.events_dropped"),
	}
}

// AddSystem registers s, keeping systems ordered by priority then insertion
func (e *Engine) AddSystem(s System) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.systems = append(e.systems, s)
	slices.SortStableFunc(e.systems, func(a, b System) int {
		return a.Priority() - b.Priority()
	})
	e.logger.Debug("system added", zap.String("system", s.Name()), zap.Int("priority", s.Priority()))
}

// Systems returns the systems in execution order
func (e *Engine) Systems() []System {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.systems)
}

// Tick runs one cycle with frame delta dt
func (e *Engine) Tick(dt time.Duration) {
	start := time.Now()

	e.mu.Lock()
	e.frame++
	if e.queue != nil {
		e.queue.SetFrame(e.frame)
	}
	if e.sched != nil {
		e.sched.Advance()
	}
	for _, s := range e.systems {
		s.Update(dt)
	}
	delivered := 0
	if e.queue != nil {
		if e.bus != nil {
			delivered = e.bus.Drain(e.queue)
		} else {
			delivered = len(e.queue.Consume())
		}
		e.statDropped.Store(int64(e.queue.Dropped()))
	}
	frame := e.frame
	e.mu.Unlock()

	ms := float64(time.Since(start).Microseconds()) / 1000
	e.statTicks.Store(frame)
	e.statTickTime.Set(ms)
	e.statTickMax.Max(ms)
	e.statEvents.Add(int64(delivered))
}

// Do runs fn between ticks, for callers outside the tick thread
func (e *Engine) Do(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// Frame returns the number of completed ticks
func (e *Engine) Frame() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame
}
