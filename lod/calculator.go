package lod

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lixenwraith/perfgov/clock"
	"github.com/lixenwraith/perfgov/event"
	"github.com/lixenwraith/perfgov/parameter"
	"github.com/lixenwraith/perfgov/status"
	"github.com/lixenwraith/perfgov/vmath"
)

// Config parameterizes a Calculator
type Config struct {
	// Bands are tier boundary distances, ascending, the last one is the cull distance
	Bands []float64
	// UpdateInterval bounds recompute cadence
	UpdateInterval time.Duration
	// PlatformMultiplier scales bands per device class
	PlatformMultiplier float64
}

// DefaultConfig returns the parameter package defaults
func DefaultConfig() Config {
	return Config{
		Bands:              append([]float64(nil), parameter.DefaultLODBands...),
		UpdateInterval:     parameter.LODUpdateInterval,
		PlatformMultiplier: 1,
	}
}

// ObjectInfo is a read-only view of a tracked object
type ObjectInfo struct {
	Handle   Handle
	Position vmath.Vec3F
	Bounds   vmath.AABB
	Tier     Tier
	Culled   bool
	Visible  bool
	Distance float64
	Cost     int64
}

type tracked struct {
	handle   Handle
	owner    Trackable
	position vmath.Vec3F
	bounds   vmath.AABB
	tier     Tier
	costs    []int64
	visible  bool
	distance float64
}

func (o *tracked) cost() int64 {
	if o.tier < 0 || int(o.tier) >= len(o.costs) {
		return 0
	}
	return o.costs[o.tier]
}

// Calculator owns the tracked-object registry and recomputes tiers at a bounded cadence
// Not safe for concurrent use, driven from the tick thread
type Calculator struct {
	cfg    Config
	bands  []float64
	scale  ScaleSource
	clock  clock.Clock
	events event.Emitter
	logger *zap.Logger

	objects    map[Handle]*tracked
	order      []Handle
	orderDirty bool
	nextHandle Handle
	lastUpdate time.Time
	totalCost  int64
	scaled     []float64

	statTracked *atomic.Int64
	statCulled  *atomic.Int64
	statCost    *atomic.Int64
	statPasses  *atomic.Int64
	statMult    *status.AtomicFloat
}

// New creates a calculator; a nil scale source means a constant multiplier of 1
func New(cfg Config, scale ScaleSource, clk clock.Clock, events event.Emitter, reg *status.Registry, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scale == nil {
		scale = FixedScale(1)
	}
	if cfg.PlatformMultiplier <= 0 {
		cfg.PlatformMultiplier = 1
	}
	if cfg.UpdateInterval < 0 {
		cfg.UpdateInterval = 0
	}
	reg = status.OrNew(reg)
	bands := NormalizeBands(cfg.Bands)

	return &Calculator{
		cfg:     cfg,
		bands:   bands,
		scale:   scale,
		clock:   clock.OrReal(clk),
		events:  event.OrDiscard(events),
		logger:  logger.With(zap.String("module", "lod")),
		objects: make(map[Handle]*tracked),
		scaled:  make([]float64, len(bands)),

		statTracked: reg.Ints.Get("lod.tracked"),
		statCulled:  reg.Ints.Get("lod.culled"),
		statCost:    reg.Ints.Get("lod.cost"),
		statPasses:  reg.Ints.Get("lod.passes"),
		statMult:    reg.Floats.Get("lod.multiplier"),
	}
}

// Register starts tracking owner; perTierCost[i] is the cost at tier i
// Missing entries cost zero and the culled tier always costs zero
func (c *Calculator) Register(owner Trackable, perTierCost []int64) Handle {
	if owner == nil {
		c.logger.Warn("register called with nil owner")
		return 0
	}
	c.nextHandle++
	h := c.nextHandle

	costs := make([]int64, len(c.bands))
	copy(costs, perTierCost)

	c.objects[h] = &tracked{
		handle:   h,
		owner:    owner,
		position: owner.Position(),
		bounds:   owner.Bounds(),
		tier:     Unassigned,
		costs:    costs,
	}
	c.order = append(c.order, h)
	c.statTracked.Store(int64(len(c.objects)))
	return h
}

// Unregister stops tracking h, returns false for unknown handles
func (c *Calculator) Unregister(h Handle) bool {
	o, ok := c.objects[h]
	if !ok {
		return false
	}
	c.remove(o)
	c.compactOrder()
	c.publish()
	return true
}

// Update recomputes tiers if the cadence interval has elapsed since the last pass
// Returns whether a pass ran
func (c *Calculator) Update(cam CameraProvider) bool {
	now := c.clock.Now()
	if !c.lastUpdate.IsZero() && now.Sub(c.lastUpdate) < c.cfg.UpdateInterval {
		return false
	}
	c.pass(cam, now)
	return true
}

// ForceUpdate recomputes tiers immediately, ignoring cadence
func (c *Calculator) ForceUpdate(cam CameraProvider) {
	c.pass(cam, c.clock.Now())
}

// TierFor returns the tier for a distance under current multipliers, ignoring visibility
func (c *Calculator) TierFor(distance float64) Tier {
	c.scaleBands()
	return Band(distance, c.scaled)
}

// CullTier is the ordinal reported for culled objects
func (c *Calculator) CullTier() Tier {
	return Tier(len(c.bands))
}

// Bands returns the unscaled thresholds in use
func (c *Calculator) Bands() []float64 {
	return append([]float64(nil), c.bands...)
}

// Lookup returns the current view of h
func (c *Calculator) Lookup(h Handle) (ObjectInfo, bool) {
	o, ok := c.objects[h]
	if !ok {
		return ObjectInfo{}, false
	}
	return ObjectInfo{
		Handle:   o.handle,
		Position: o.position,
		Bounds:   o.bounds,
		Tier:     o.tier,
		Culled:   o.tier == c.CullTier(),
		Visible:  o.visible,
		Distance: o.distance,
		Cost:     o.cost(),
	}, true
}

// TotalCost is the sum of current per-tier costs, for aggregate reporting
func (c *Calculator) TotalCost() int64 {
	return c.totalCost
}

// TierCounts returns object counts per tier, the last entry is culled
// Unassigned objects are not counted
func (c *Calculator) TierCounts() []int {
	counts := make([]int, len(c.bands)+1)
	for _, o := range c.objects {
		if o.tier >= 0 {
			counts[o.tier]++
		}
	}
	return counts
}

// Len returns the number of tracked objects
func (c *Calculator) Len() int {
	return len(c.objects)
}

func (c *Calculator) scaleBands() float64 {
	mult := c.cfg.PlatformMultiplier * c.scale.LODMultiplier()
	if mult <= 0 {
		mult = c.cfg.PlatformMultiplier
	}
	for i, b := range c.bands {
		c.scaled[i] = b * mult
	}
	return mult
}

func (c *Calculator) pass(cam CameraProvider, now time.Time) {
	c.lastUpdate = now
	mult := c.scaleBands()
	c.statMult.Set(mult)

	var camPos vmath.Vec3F
	var view vmath.Frustum
	if cam != nil {
		camPos = cam.CameraPosition()
		view = cam.Frustum()
	}

	var pruned []uint64
	culled := int64(0)
	cullTier := c.CullTier()

	for _, h := range c.order {
		o, ok := c.objects[h]
		if !ok {
			continue
		}
		if !o.owner.Alive() {
			pruned = append(pruned, uint64(h))
			c.remove(o)
			continue
		}

		o.position = o.owner.Position()
		o.bounds = o.owner.Bounds()
		o.distance = vmath.V3FDist(camPos, o.position)
		o.visible = view.IntersectsAABB(o.bounds)

		tier := Band(o.distance, c.scaled)
		if !o.visible {
			tier = cullTier
		}
		if tier == cullTier {
			culled++
		}
		if tier != o.tier {
			c.setTier(o, tier)
		}
	}

	if len(pruned) > 0 {
		c.compactOrder()
		c.events.Push(event.Event{
			Type:    event.EventLODPruned,
			Payload: &event.LODPrunedPayload{Handles: pruned},
		})
		c.logger.Debug("pruned destroyed objects", zap.Int("count", len(pruned)))
	}

	c.statCulled.Store(culled)
	c.statPasses.Add(1)
	c.publish()
}

func (c *Calculator) setTier(o *tracked, tier Tier) {
	old := o.tier
	oldCost := o.cost()
	o.tier = tier
	newCost := o.cost()
	c.totalCost += newCost - oldCost

	c.events.Push(event.Event{
		Type: event.EventLODChanged,
		Payload: &event.LODChangedPayload{
			Handle:   uint64(o.handle),
			OldTier:  int(old),
			NewTier:  int(tier),
			Culled:   tier == c.CullTier(),
			Distance: o.distance,
			Cost:     newCost,
		},
	})
}

func (c *Calculator) remove(o *tracked) {
	c.totalCost -= o.cost()
	delete(c.objects, o.handle)
	c.orderDirty = true
}

func (c *Calculator) compactOrder() {
	if !c.orderDirty {
		return
	}
	kept := c.order[:0]
	for _, h := range c.order {
		if _, ok := c.objects[h]; ok {
			kept = append(kept, h)
		}
	}
	c.order = kept
	c.orderDirty = false
}

func (c *Calculator) publish() {
	c.statTracked.Store(int64(len(c.objects)))
	c.statCost.Store(c.totalCost)
}
