package budget

import (
	"cmp"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lixenwraith/perfgov/clock"
	"github.com/lixenwraith/perfgov/event"
	"github.com/lixenwraith/perfgov/parameter"
	"github.com/lixenwraith/perfgov/status"
)

var (
	ErrUnknownAsset   = errors.New("unknown asset")
	ErrDuplicateAsset = errors.New("asset already registered")
)

const totalScope = "total"

// Asset is a snapshot of a tracked asset handle
type Asset struct {
	ID          string
	Category    Category
	Size        int64
	Persistent  bool
	Priority    int // lower is more disposable
	Loaded      bool
	LastAccess  time.Time
	AccessCount int64
}

// Config parameterizes a Tracker
// A category with a non-positive budget has no scope of its own; its usage and
// assets still belong to the aggregate scope
type Config struct {
	Budgets              [CategoryCount]int64
	Thresholds           Thresholds
	MaxEvictionsPerCycle int
	CheckInterval        time.Duration
}

// DefaultConfig splits the default total budget with DefaultSplits
func DefaultConfig() Config {
	return Config{
		Budgets: SplitBudget(parameter.DefaultTotalBudgetMB<<20, DefaultSplits()),
		Thresholds: Thresholds{
			Warning:   parameter.WarningRatio,
			Critical:  parameter.CriticalMemoryRatio,
			Emergency: parameter.EmergencyRatio,
		},
		MaxEvictionsPerCycle: parameter.MaxEvictionsPerCycle,
		CheckInterval:        parameter.MemoryCheckInterval,
	}
}

// EvictFunc is told about every evicted asset so the owner can release it
type EvictFunc func(a Asset)

// Reclaimer is asked to return memory to the system after an emergency sweep
type Reclaimer interface {
	Reclaim()
}

// ReclaimFunc adapts a function to Reclaimer
type ReclaimFunc func()

// Reclaim implements Reclaimer
func (f ReclaimFunc) Reclaim() { f() }

// RuntimeReclaimer forces a collection and returns freed pages to the OS
type RuntimeReclaimer struct{}

// Reclaim implements Reclaimer
func (RuntimeReclaimer) Reclaim() {
	runtime.GC()
	debug.FreeOSMemory()
}

// Report is the outcome of one evaluation
// Levels are the classification that drove eviction, After is the state left behind
type Report struct {
	Levels     [CategoryCount]Pressure
	Total      Pressure
	After      [CategoryCount]Pressure
	TotalAfter Pressure
	Evicted    []Asset
	FreedBytes int64
	Reclaimed  bool
}

type entry struct {
	Asset
	seq uint64
}

type categoryStats struct {
	usage *atomic.Int64
	ratio *status.AtomicFloat
	level *status.AtomicString
}

// Tracker is the memory budget tracker and eviction policy
// Usage per category always equals the summed size of its loaded assets
// Not safe for concurrent use, driven from the tick thread
type Tracker struct {
	cfg       Config
	clock     clock.Clock
	events    event.Emitter
	logger    *zap.Logger
	evict     EvictFunc
	reclaimer Reclaimer

	assets    map[string]*entry
	usage     [CategoryCount]int64
	levels    [CategoryCount]Pressure
	total     Pressure
	seq       uint64
	lastCheck time.Time

	statCategory [CategoryCount]categoryStats
	statTotal    *status.AtomicFloat
	statPressure *status.AtomicString
	statEvicted  *atomic.Int64
	statAssets   *atomic.Int64
}

// New creates a tracker; the reclaimer defaults to RuntimeReclaimer
func New(cfg Config, clk clock.Clock, events event.Emitter, reg *status.Registry, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxEvictionsPerCycle <= 0 {
		cfg.MaxEvictionsPerCycle = parameter.MaxEvictionsPerCycle
	}
	reg = status.OrNew(reg)

	t := &Tracker{
		cfg:       cfg,
		clock:     clock.OrReal(clk),
		events:    event.OrDiscard(events),
		logger:    logger.With(zap.String("module", "budget")),
		reclaimer: RuntimeReclaimer{},
		assets:    make(map[string]*entry),

		statTotal:    reg.Floats.Get("memory.total.ratio"),
		statPressure: reg.Strings.Get("memory.pressure"),
		statEvicted:  reg.Ints.Get("memory.evicted_total"),
		statAssets:   reg.Ints.Get("memory.assets"),
	}
	for c := range CategoryCount {
		prefix := "memory." + c.String()
		t.statCategory[c] = categoryStats{
			usage: reg.Ints.Get(prefix + ".usage_bytes"),
			ratio: reg.Floats.Get(prefix + ".ratio"),
			level: reg.Strings.Get(prefix + ".pressure"),
		}
	}
	t.publish()
	return t
}

// SetEvictor installs the eviction callback
func (t *Tracker) SetEvictor(fn EvictFunc) {
	t.evict = fn
}

// SetReclaimer replaces the reclaimer, nil disables reclamation
func (t *Tracker) SetReclaimer(r Reclaimer) {
	t.reclaimer = r
}

// SetBudget changes one category budget; takes effect on the next evaluation
func (t *Tracker) SetBudget(c Category, bytes int64) {
	if !c.Valid() {
		return
	}
	t.cfg.Budgets[c] = bytes
	t.publish()
}

// RegisterAsset starts tracking a loaded asset
func (t *Tracker) RegisterAsset(id string, c Category, size int64, persistent bool, priority int) error {
	if _, ok := t.assets[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAsset, id)
	}
	if !c.Valid() {
		c = CategoryOther
	}
	if size < 0 {
		size = 0
	}
	t.seq++
	t.assets[id] = &entry{
		Asset: Asset{
			ID:         id,
			Category:   c,
			Size:       size,
			Persistent: persistent,
			Priority:   priority,
			Loaded:     true,
			LastAccess: t.clock.Now(),
		},
		seq: t.seq,
	}
	t.usage[c] += size
	t.publish()
	return nil
}

// Unregister stops tracking id and releases its usage
func (t *Tracker) Unregister(id string) error {
	e, ok := t.assets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, id)
	}
	t.drop(e)
	t.publish()
	return nil
}

// SetLoaded toggles whether id counts toward usage
func (t *Tracker) SetLoaded(id string, loaded bool) error {
	e, ok := t.assets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, id)
	}
	if e.Loaded == loaded {
		return nil
	}
	e.Loaded = loaded
	if loaded {
		t.usage[e.Category] += e.Size
	} else {
		t.usage[e.Category] -= e.Size
	}
	t.publish()
	return nil
}

// MarkAccessed refreshes last access time and bumps the access count
func (t *Tracker) MarkAccessed(id string) error {
	e, ok := t.assets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, id)
	}
	e.LastAccess = t.clock.Now()
	e.AccessCount++
	return nil
}

// Lookup returns a snapshot of id
func (t *Tracker) Lookup(id string) (Asset, bool) {
	e, ok := t.assets[id]
	if !ok {
		return Asset{}, false
	}
	return e.Asset, true
}

// Len returns the number of registered assets
func (t *Tracker) Len() int {
	return len(t.assets)
}

// EvictableCount returns loaded non-persistent assets
func (t *Tracker) EvictableCount() int {
	n := 0
	for _, e := range t.assets {
		if e.Loaded && !e.Persistent {
			n++
		}
	}
	return n
}

// Usage returns the loaded bytes in c
func (t *Tracker) Usage(c Category) int64 {
	if !c.Valid() {
		return 0
	}
	return t.usage[c]
}

// Budget returns the budget of c
func (t *Tracker) Budget(c Category) int64 {
	if !c.Valid() {
		return 0
	}
	return t.cfg.Budgets[c]
}

// UsageRatio returns usage/budget of c, zero for unbounded categories
func (t *Tracker) UsageRatio(c Category) float64 {
	if !c.Valid() {
		return 0
	}
	return ratio(t.usage[c], t.cfg.Budgets[c])
}

// TotalUsage sums usage across categories
func (t *Tracker) TotalUsage() int64 {
	var sum int64
	for _, u := range t.usage {
		sum += u
	}
	return sum
}

// TotalBudget sums the bounded category budgets
func (t *Tracker) TotalBudget() int64 {
	var sum int64
	for _, b := range t.cfg.Budgets {
		if b > 0 {
			sum += b
		}
	}
	return sum
}

// TotalUsageRatio is all loaded usage over the summed budgets
func (t *Tracker) TotalUsageRatio() float64 {
	return ratio(t.TotalUsage(), t.TotalBudget())
}

// Pressure returns the worst level left by the last evaluation
func (t *Tracker) Pressure() Pressure {
	w := t.total
	for _, l := range t.levels {
		w = max(w, l)
	}
	return w
}

// Update runs Evaluate if the check interval has elapsed
func (t *Tracker) Update() (Report, bool) {
	now := t.clock.Now()
	if !t.lastCheck.IsZero() && now.Sub(t.lastCheck) < t.cfg.CheckInterval {
		return Report{}, false
	}
	return t.Evaluate(), true
}

// Evaluate classifies every category and the aggregate, then runs one eviction cycle
// Plain pressure evicts at most MaxEvictionsPerCycle assets while usage stays
// above the warning line; critical evicts to the warning line without a cap;
// emergency evicts every loaded non-persistent asset in scope and requests reclamation
func (t *Tracker) Evaluate() Report {
	t.lastCheck = t.clock.Now()
	var r Report

	for c := range CategoryCount {
		r.Levels[c] = t.classify(c)
		t.transition(c.String(), t.levels[c], r.Levels[c], t.usage[c], t.cfg.Budgets[c])
		t.levels[c] = r.Levels[c]
	}
	r.Total = t.cfg.Thresholds.Classify(t.TotalUsageRatio())
	t.transition(totalScope, t.total, r.Total, t.TotalUsage(), t.TotalBudget())
	t.total = r.Total

	capLeft := t.cfg.MaxEvictionsPerCycle
	sweep := false

	for c := range CategoryCount {
		if r.Levels[c] == PressureNone {
			continue
		}
		scope := c
		over := func() bool {
			return t.usage[scope] > t.line(t.cfg.Budgets[scope])
		}
		sweep = t.evictScope(&r, r.Levels[c], &scope, over, &capLeft) || sweep
	}
	if r.Total != PressureNone {
		over := func() bool {
			return t.TotalUsage() > t.line(t.TotalBudget())
		}
		sweep = t.evictScope(&r, r.Total, nil, over, &capLeft) || sweep
	}

	if sweep {
		t.events.Push(event.Event{
			Type: event.EventReclaimRequested,
			Payload: &event.ReclaimRequestedPayload{
				FreedBytes: r.FreedBytes,
				Evicted:    len(r.Evicted),
			},
		})
		if t.reclaimer != nil {
			t.reclaimer.Reclaim()
			r.Reclaimed = true
		}
		t.logger.Warn("emergency memory sweep",
			zap.Int("evicted", len(r.Evicted)),
			zap.Int64("freed_bytes", r.FreedBytes))
	}

	for c := range CategoryCount {
		r.After[c] = t.classify(c)
		t.transition(c.String(), t.levels[c], r.After[c], t.usage[c], t.cfg.Budgets[c])
		t.levels[c] = r.After[c]
	}
	r.TotalAfter = t.cfg.Thresholds.Classify(t.TotalUsageRatio())
	t.transition(totalScope, t.total, r.TotalAfter, t.TotalUsage(), t.TotalBudget())
	t.total = r.TotalAfter

	t.publish()
	return r
}

// evictScope runs one policy step over candidates in category (nil for all)
// Returns true when an emergency sweep ran
func (t *Tracker) evictScope(r *Report, level Pressure, category *Category, over func() bool, capLeft *int) bool {
	candidates := t.candidates(category)

	switch level {
	case PressureEmergency:
		for _, e := range candidates {
			t.evictOne(r, e, level)
		}
		return true
	case PressureCritical:
		for _, e := range candidates {
			if !over() {
				break
			}
			t.evictOne(r, e, level)
		}
	case PressureWarning:
		for _, e := range candidates {
			if *capLeft <= 0 || !over() {
				break
			}
			t.evictOne(r, e, level)
			*capLeft--
		}
	}
	return false
}

// candidates returns loaded non-persistent assets, least valuable first
func (t *Tracker) candidates(category *Category) []*entry {
	out := make([]*entry, 0, len(t.assets))
	for _, e := range t.assets {
		if e.Persistent || !e.Loaded {
			continue
		}
		if category != nil && e.Category != *category {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *entry) int {
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		if c := a.LastAccess.Compare(b.LastAccess); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}

func (t *Tracker) evictOne(r *Report, e *entry, level Pressure) {
	if e.Persistent {
		return
	}
	t.drop(e)
	snap := e.Asset
	snap.Loaded = false
	r.Evicted = append(r.Evicted, snap)
	r.FreedBytes += e.Size
	t.statEvicted.Add(1)

	t.events.Push(event.Event{
		Type: event.EventAssetEvicted,
		Payload: &event.AssetEvictedPayload{
			ID:       e.ID,
			Category: e.Category.String(),
			Size:     e.Size,
			Priority: e.Priority,
			Level:    level.String(),
		},
	})
	t.logger.Debug("asset evicted",
		zap.String("id", e.ID),
		zap.Stringer("category", e.Category),
		zap.Int64("size", e.Size),
		zap.Stringer("level", level))

	if t.evict != nil {
		t.evict(snap)
	}
}

func (t *Tracker) drop(e *entry) {
	if e.Loaded {
		t.usage[e.Category] -= e.Size
		e.Loaded = false
	}
	delete(t.assets, e.ID)
}

func (t *Tracker) transition(scope string, prev, next Pressure, usage, budget int64) {
	if prev == next {
		return
	}
	var typ event.Type
	switch next {
	case PressureNone:
		typ = event.EventMemoryRelieved
	case PressureWarning:
		typ = event.EventMemoryPressure
	case PressureCritical:
		typ = event.EventMemoryCritical
	case PressureEmergency:
		typ = event.EventMemoryEmergency
	}
	t.events.Push(event.Event{
		Type: typ,
		Payload: &event.MemoryPressurePayload{
			Scope:    scope,
			Level:    next.String(),
			Previous: prev.String(),
			Usage:    usage,
			Budget:   budget,
			Ratio:    ratio(usage, budget),
		},
	})
	if next > prev {
		t.logger.Info("memory pressure raised",
			zap.String("scope", scope),
			zap.Stringer("from", prev),
			zap.Stringer("to", next),
			zap.Int64("usage", usage),
			zap.Int64("budget", budget))
	}
}

func (t *Tracker) classify(c Category) Pressure {
	if t.cfg.Budgets[c] <= 0 {
		return PressureNone
	}
	return t.cfg.Thresholds.Classify(ratio(t.usage[c], t.cfg.Budgets[c]))
}

// line is the usage eviction drives a scope down to
func (t *Tracker) line(budget int64) int64 {
	return int64(float64(budget) * t.cfg.Thresholds.Warning)
}

func (t *Tracker) publish() {
	for c := range CategoryCount {
		s := t.statCategory[c]
		s.usage.Store(t.usage[c])
		s.ratio.Set(t.UsageRatio(c))
		s.level.Store(t.levels[c].String())
	}
	t.statTotal.Set(t.TotalUsageRatio())
	t.statPressure.Store(t.Pressure().String())
	t.statAssets.Store(int64(len(t.assets)))
}

func ratio(usage, budget int64) float64 {
	if budget <= 0 {
		return 0
	}
	return float64(usage) / float64(budget)
}
