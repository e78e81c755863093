// Package pool provides a bounded reuse pool for transient objects
package pool

import (
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lixenwraith/perfgov/clock"
	"github.com/lixenwraith/perfgov/event"
	"github.com/lixenwraith/perfgov/parameter"
	"github.com/lixenwraith/perfgov/status"
)

var ErrNoFactory = errors.New("pool: New factory is required")

// Resettable items are reset when returned to the pool
type Resettable interface {
	Reset()
}

// Options configures a Pool; start from DefaultOptions
// New must return distinct non-zero items, pointers in practice
type Options[T comparable] struct {
	Name        string
	InitialSize int
	MaxSize     int
	Expandable  bool

	// AllowForcedReuse lets an exhausted pool take back its oldest active item
	// The previous holder is only told through OnRecycle and EventPoolRecycled
	AllowForcedReuse bool

	CleanupInterval time.Duration
	MaxIdle         time.Duration

	New       func() T
	Destroy   func(T)
	Reset     func(T)
	OnRecycle func(item T, activeFor time.Duration)

	Clock    clock.Clock
	Events   event.Emitter
	Registry *status.Registry
	Logger   *zap.Logger
}

// DefaultOptions returns an expandable pool that recycles live items when exhausted
func DefaultOptions[T comparable](name string, newFn func() T) Options[T] {
	return Options[T]{
		Name:             name,
		MaxSize:          parameter.PoolDefaultMaxSize,
		Expandable:       true,
		AllowForcedReuse: true,
		CleanupInterval:  parameter.PoolCleanupInterval,
		MaxIdle:          parameter.PoolMaxIdle,
		New:              newFn,
	}
}

// Stats are lifetime counters and the current slot census
type Stats struct {
	Name         string
	Size         int
	Active       int
	Available    int
	Created      int64
	Reused       int64
	ForcedReuses int64
	Destroyed    int64
	Efficiency   float64
}

type slot[T comparable] struct {
	item     T
	active   bool
	acquired time.Time
	lastUsed time.Time
	usage    int64
}

// Pool hands out items, reusing free slots before creating new ones
// Slot lifecycle: free -> active (Get) -> free (Return) -> destroyed (idle cleanup)
// An exhausted pool with forced reuse moves its oldest active slot straight
// back to active for the new caller
// Not safe for concurrent use, driven from the tick thread
type Pool[T comparable] struct {
	opts   Options[T]
	clock  clock.Clock
	events event.Emitter
	logger *zap.Logger
	warn   rate.Sometimes

	slots    map[T]*slot[T]
	free     []*slot[T]
	active   int
	disposed bool

	created     int64
	reused      int64
	forced      int64
	destroyed   int64
	lastCleanup time.Time

	statActive    *atomic.Int64
	statAvailable *atomic.Int64
	statCreated   *atomic.Int64
	statReused    *atomic.Int64
}

// New builds a pool and prewarms InitialSize items
func New[T comparable](opts Options[T]) (*Pool[T], error) {
	if opts.New == nil {
		return nil, ErrNoFactory
	}
	if opts.Name == "" {
		opts.Name = "default"
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = parameter.PoolDefaultMaxSize
	}
	opts.InitialSize = min(max(opts.InitialSize, 0), opts.MaxSize)
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = parameter.PoolCleanupInterval
	}
	if opts.MaxIdle <= 0 {
		opts.MaxIdle = parameter.PoolMaxIdle
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := status.OrNew(opts.Registry)
	prefix := "pool." + opts.Name

	p := &Pool[T]{
		opts:   opts,
		clock:  clock.OrReal(opts.Clock),
		events: event.OrDiscard(opts.Events),
		logger: logger.With(zap.String("module", "pool"), zap.String("pool", opts.Name)),
		warn:   rate.Sometimes{First: 1, Interval: parameter.WarnThrottleInterval},
		slots:  make(map[T]*slot[T], opts.InitialSize),
		free:   make([]*slot[T], 0, opts.InitialSize),

		statActive:    reg.Ints.Get(prefix + ".active"),
		statAvailable: reg.Ints.Get(prefix + ".available"),
		statCreated:   reg.Ints.Get(prefix + ".created"),
		statReused:    reg.Ints.Get(prefix + ".reused"),
	}

	now := p.clock.Now()
	p.lastCleanup = now
	for range opts.InitialSize {
		s := p.create(now)
		if s == nil {
			break
		}
		p.free = append(p.free, s)
	}
	p.publish()
	return p, nil
}

// Get acquires an item and applies spawn to it
// Returns false when the pool is disposed, or exhausted with forced reuse disabled
func (p *Pool[T]) Get(spawn func(T)) (T, bool) {
	var zero T
	if p.disposed {
		p.warnf("get on disposed pool")
		return zero, false
	}
	now := p.clock.Now()

	var s *slot[T]
	if len(p.free) > 0 {
		s = p.free[0]
		p.free[0] = nil
		p.free = p.free[1:]
		p.reused++
	}
	if s == nil && p.opts.Expandable && len(p.slots) < p.opts.MaxSize {
		s = p.create(now)
	}
	if s == nil && p.opts.AllowForcedReuse && p.active > 0 {
		s = p.recycleOldest(now)
		p.reused++
	}
	if s == nil {
		p.warnf("pool exhausted")
		return zero, false
	}

	if !s.active {
		p.active++
	}
	s.active = true
	s.acquired = now
	s.lastUsed = now
	s.usage++
	if spawn != nil {
		spawn(s.item)
	}
	p.publish()
	return s.item, true
}

// Return releases item back to the free queue and resets it
// Zero values, foreign items and double returns are logged no-ops
func (p *Pool[T]) Return(item T) bool {
	var zero T
	if item == zero {
		p.warnf("return of zero item")
		return false
	}
	s, ok := p.slots[item]
	if !ok {
		p.warnf("return of item not owned by pool")
		return false
	}
	if !s.active {
		p.warnf("item returned twice")
		return false
	}

	s.active = false
	s.lastUsed = p.clock.Now()
	p.active--
	p.reset(s.item)
	p.free = append(p.free, s)
	p.publish()
	return true
}

// CleanupOldItems destroys free slots idle for longer than maxAge
func (p *Pool[T]) CleanupOldItems(maxAge time.Duration) int {
	now := p.clock.Now()
	p.lastCleanup = now

	kept := p.free[:0]
	removed := 0
	for _, s := range p.free {
		if now.Sub(s.lastUsed) > maxAge {
			p.destroy(s)
			removed++
			continue
		}
		kept = append(kept, s)
	}
	clear(p.free[len(kept):])
	p.free = kept

	if removed > 0 {
		p.logger.Debug("idle items destroyed", zap.Int("count", removed))
		p.publish()
	}
	return removed
}

// Tick runs idle cleanup at most once per CleanupInterval
func (p *Pool[T]) Tick() (int, bool) {
	if p.disposed || p.clock.Now().Sub(p.lastCleanup) < p.opts.CleanupInterval {
		return 0, false
	}
	return p.CleanupOldItems(p.opts.MaxIdle), true
}

// Dispose destroys every slot, active ones included; later calls are no-ops
func (p *Pool[T]) Dispose() {
	if p.disposed {
		return
	}
	for _, s := range p.slots {
		p.destroy(s)
	}
	p.free = nil
	p.active = 0
	p.disposed = true
	p.publish()
}

// Size is the number of live slots, active or free
func (p *Pool[T]) Size() int {
	return len(p.slots)
}

// Active is the number of slots held by callers
func (p *Pool[T]) Active() int {
	return p.active
}

// Available is the number of free slots
func (p *Pool[T]) Available() int {
	return len(p.free)
}

// Stats returns the lifetime counters
// Efficiency is reused over all acquisitions
func (p *Pool[T]) Stats() Stats {
	st := Stats{
		Name:         p.opts.Name,
		Size:         len(p.slots),
		Active:       p.active,
		Available:    len(p.free),
		Created:      p.created,
		Reused:       p.reused,
		ForcedReuses: p.forced,
		Destroyed:    p.destroyed,
	}
	if acquisitions := p.reused + p.created; acquisitions > 0 {
		st.Efficiency = float64(p.reused) / float64(acquisitions)
	}
	return st
}

// create returns nil when the factory yields the zero value or an item the
// pool already owns, since slots are looked up by item
func (p *Pool[T]) create(now time.Time) *slot[T] {
	var zero T
	item := p.opts.New()
	if item == zero {
		p.warnf("factory returned zero item")
		return nil
	}
	if _, dup := p.slots[item]; dup {
		p.warnf("factory returned an item the pool already owns")
		return nil
	}
	s := &slot[T]{item: item, lastUsed: now}
	p.slots[item] = s
	p.created++
	return s
}

func (p *Pool[T]) recycleOldest(now time.Time) *slot[T] {
	var oldest *slot[T]
	for _, s := range p.slots {
		if s.active && (oldest == nil || s.acquired.Before(oldest.acquired)) {
			oldest = s
		}
	}
	activeFor := now.Sub(oldest.acquired)
	if p.opts.OnRecycle != nil {
		p.opts.OnRecycle(oldest.item, activeFor)
	}
	p.reset(oldest.item)
	p.forced++

	p.events.Push(event.Event{
		Type: event.EventPoolRecycled,
		Payload: &event.PoolRecycledPayload{
			Pool:       p.opts.Name,
			ActiveFor:  activeFor,
			UsageCount: oldest.usage,
		},
	})
	p.warnf("pool exhausted, recycling oldest active item")
	return oldest
}

func (p *Pool[T]) destroy(s *slot[T]) {
	delete(p.slots, s.item)
	if p.opts.Destroy != nil {
		p.opts.Destroy(s.item)
	}
	p.destroyed++
}

func (p *Pool[T]) reset(item T) {
	if p.opts.Reset != nil {
		p.opts.Reset(item)
		return
	}
	if r, ok := any(item).(Resettable); ok {
		r.Reset()
	}
}

func (p *Pool[T]) warnf(msg string) {
	p.warn.Do(func() {
		p.logger.Warn(msg,
			zap.Int("size", len(p.slots)),
			zap.Int("active", p.active))
	})
}

func (p *Pool[T]) publish() {
	p.statActive.Store(int64(p.active))
	p.statAvailable.Store(int64(len(p.free)))
	p.statCreated.Store(p.created)
	p.statReused.Store(p.reused)
}
