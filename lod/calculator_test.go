package lod

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/perfgov/clock"
	"github.com/lixenwraith/perfgov/event"
	"github.com/lixenwraith/perfgov/status"
	"github.com/lixenwraith/perfgov/vmath"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeObject struct {
	pos   vmath.Vec3F
	alive bool
}

func (f *fakeObject) Position() vmath.Vec3F { return f.pos }
func (f *fakeObject) Bounds() vmath.AABB {
	return vmath.AABBAround(f.pos, vmath.Vec3F{X: 0.5, Y: 0.5, Z: 0.5})
}
func (f *fakeObject) Alive() bool { return f.alive }

func at(x float64) *fakeObject {
	return &fakeObject{pos: vmath.Vec3F{X: x}, alive: true}
}

func newCalc(t *testing.T, bands []float64, scale ScaleSource) (*Calculator, *clock.Mock, *event.Queue) {
	t.Helper()
	clk := clock.NewMock(epoch)
	q := event.NewQueue()
	cfg := DefaultConfig()
	cfg.Bands = bands
	return New(cfg, scale, clk, q, status.NewRegistry(), nil), clk, q
}

func TestBand_AscendingComparison(t *testing.T) {
	bands := []float64{15, 35, 75, 150}
	assert.Equal(t, Tier(0), Band(10, bands))
	assert.Equal(t, Tier(1), Band(20, bands))
	assert.Equal(t, Tier(2), Band(50, bands))
	assert.Equal(t, Tier(3), Band(100, bands))
	assert.Equal(t, Tier(4), Band(200, bands), "beyond last band is culled")
}

func TestCalculator_MonotonicInDistance(t *testing.T) {
	c, _, _ := newCalc(t, []float64{15, 35, 75, 150}, nil)

	prev := c.TierFor(0)
	for d := 0.0; d < 300; d += 0.5 {
		tier := c.TierFor(d)
		assert.GreaterOrEqual(t, int(tier), int(prev), "distance %.1f", d)
		prev = tier
	}
	assert.Equal(t, c.CullTier(), prev)
}

func TestCalculator_AssignsTiersAndCosts(t *testing.T) {
	c, _, q := newCalc(t, []float64{15, 35, 75, 150}, nil)
	costs := []int64{1000, 400, 100, 20}

	near := c.Register(at(10), costs)
	mid := c.Register(at(20), costs)
	far := c.Register(at(50), costs)
	gone := c.Register(at(200), costs)

	c.ForceUpdate(StaticCamera{})

	expect := map[Handle]Tier{near: 0, mid: 1, far: 2, gone: 4}
	for h, tier := range expect {
		info, ok := c.Lookup(h)
		require.True(t, ok)
		assert.Equal(t, tier, info.Tier)
	}
	info, _ := c.Lookup(gone)
	assert.True(t, info.Culled)
	assert.Zero(t, info.Cost)

	assert.Equal(t, int64(1000+400+100), c.TotalCost())
	assert.Equal(t, []int{1, 1, 1, 0, 1}, c.TierCounts())

	evs := q.Consume()
	require.Len(t, evs, 4)
	p := evs[0].Payload.(*event.LODChangedPayload)
	assert.Equal(t, int(Unassigned), p.OldTier)
}

func TestCalculator_DefaultThreeBandsCullAtThree(t *testing.T) {
	c, _, _ := newCalc(t, nil, nil)
	assert.Equal(t, Tier(3), c.CullTier())
	assert.Equal(t, []float64{15, 35, 75}, c.Bands())
	assert.Equal(t, Tier(3), c.TierFor(80))
}

func TestCalculator_CadenceBounded(t *testing.T) {
	c, clk, _ := newCalc(t, nil, nil)
	c.Register(at(1), nil)

	assert.True(t, c.Update(StaticCamera{}))
	assert.False(t, c.Update(StaticCamera{}))
	clk.Advance(50 * time.Millisecond)
	assert.False(t, c.Update(StaticCamera{}))
	clk.Advance(50 * time.Millisecond)
	assert.True(t, c.Update(StaticCamera{}))
}

func TestCalculator_TierChangeOnlyOnTransition(t *testing.T) {
	c, clk, q := newCalc(t, []float64{10, 20, 30}, nil)
	obj := at(5)
	h := c.Register(obj, []int64{3, 2, 1})

	c.Update(StaticCamera{})
	q.Consume()

	clk.Advance(time.Second)
	c.Update(StaticCamera{})
	assert.Empty(t, q.Consume(), "unchanged tier emits nothing")

	obj.pos = vmath.Vec3F{X: 25}
	clk.Advance(time.Second)
	c.Update(StaticCamera{})

	evs := q.Consume()
	require.Len(t, evs, 1)
	p := evs[0].Payload.(*event.LODChangedPayload)
	assert.Equal(t, uint64(h), p.Handle)
	assert.Equal(t, 0, p.OldTier)
	assert.Equal(t, 2, p.NewTier)
	assert.Equal(t, int64(1), p.Cost)
	assert.Equal(t, int64(1), c.TotalCost())
}

func TestCalculator_FrustumCulls(t *testing.T) {
	c, _, _ := newCalc(t, []float64{100, 200, 300}, nil)
	inView := c.Register(at(10), []int64{5})
	behind := c.Register(at(-10), []int64{5})

	cam := StaticCamera{
		View: vmath.BoxFrustum(vmath.AABB{Min: vmath.Vec3F{X: 0, Y: -50, Z: -50}, Max: vmath.Vec3F{X: 500, Y: 50, Z: 50}}),
	}
	c.ForceUpdate(cam)

	info, _ := c.Lookup(inView)
	assert.True(t, info.Visible)
	assert.Equal(t, Tier(0), info.Tier)

	info, _ = c.Lookup(behind)
	assert.False(t, info.Visible)
	assert.True(t, info.Culled)
	assert.Equal(t, int64(5), c.TotalCost())
}

func TestCalculator_ScaleMultiplierShrinksBands(t *testing.T) {
	c, _, _ := newCalc(t, []float64{15, 35, 75}, FixedScale(0.5))
	assert.Equal(t, Tier(1), c.TierFor(10), "15*0.5 = 7.5")
	assert.Equal(t, Tier(3), c.TierFor(40), "75*0.5 = 37.5")

	clk := clock.NewMock(epoch)
	cfg := DefaultConfig()
	cfg.PlatformMultiplier = 2
	c2 := New(cfg, FixedScale(1), clk, nil, nil, nil)
	assert.Equal(t, Tier(0), c2.TierFor(20), "15*2 = 30")
}

func TestCalculator_PrunesDestroyedOwners(t *testing.T) {
	c, _, q := newCalc(t, nil, nil)
	keep := c.Register(at(1), []int64{10})
	doomedObj := at(2)
	doomed := c.Register(doomedObj, []int64{10})

	c.ForceUpdate(StaticCamera{})
	assert.Equal(t, int64(20), c.TotalCost())
	q.Consume()

	doomedObj.alive = false
	c.ForceUpdate(StaticCamera{})

	assert.Equal(t, 1, c.Len())
	_, ok := c.Lookup(doomed)
	assert.False(t, ok)
	_, ok = c.Lookup(keep)
	assert.True(t, ok)
	assert.Equal(t, int64(10), c.TotalCost())

	evs := q.Consume()
	require.Len(t, evs, 1)
	assert.Equal(t, event.EventLODPruned, evs[0].Type)
	assert.Equal(t, []uint64{uint64(doomed)}, evs[0].Payload.(*event.LODPrunedPayload).Handles)
}

func TestCalculator_UnregisterAndNil(t *testing.T) {
	c, _, _ := newCalc(t, nil, nil)
	assert.Equal(t, Handle(0), c.Register(nil, nil))

	h := c.Register(at(1), []int64{7})
	c.ForceUpdate(StaticCamera{})
	assert.True(t, c.Unregister(h))
	assert.False(t, c.Unregister(h))
	assert.Zero(t, c.TotalCost())
	assert.Zero(t, c.Len())
}

func TestNormalizeBands(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3, 4}, NormalizeBands([]float64{5, 4, -1, 3, 2, 1}))
	assert.Equal(t, []float64{15, 35, 75}, NormalizeBands(nil))
}
