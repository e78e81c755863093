package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lixenwraith/perfgov/clock"
	"github.com/lixenwraith/perfgov/lod"
	"github.com/lixenwraith/perfgov/quality"
	"github.com/lixenwraith/perfgov/sampler"
	"github.com/lixenwraith/perfgov/status"
	"github.com/lixenwraith/perfgov/vmath"
)

func TestFrameSystem_PublishesWindow(t *testing.T) {
	reg := status.NewRegistry()
	s := sampler.New(4)
	sys := NewFrameSystem(s, reg)

	sys.Update(20 * time.Millisecond)
	sys.Update(20 * time.Millisecond)

	assert.Equal(t, 2, s.Len())
	assert.InDelta(t, 50, reg.Floats.Get("frame.fps.avg").Get(), 1e-6)
	assert.InDelta(t, 50, reg.Floats.Get("frame.fps.instant").Get(), 1e-6)
}

func TestQualitySystem_EvaluatesAtInterval(t *testing.T) {
	clk := clock.NewMock(time.Unix(0, 0))
	s := sampler.New(8)
	for range 8 {
		s.Record(40 * time.Millisecond) // 25 fps
	}
	cfg := quality.DefaultConfig()
	g := quality.New(cfg, clk, nil, nil, nil)
	sys := NewQualitySystem(g, s, clk, 500*time.Millisecond)

	sys.Update(0)
	sys.Update(0)
	sys.Update(0)
	assert.Equal(t, 1, g.State().ConsecutiveLow, "gated to one evaluation")

	clk.Advance(500 * time.Millisecond)
	sys.Update(0)
	clk.Advance(500 * time.Millisecond)
	sys.Update(0)
	assert.Equal(t, quality.TierMedium, g.Tier(), "third low evaluation drops a tier")
}

type point struct{ pos vmath.Vec3F }

func (p point) Position() vmath.Vec3F { return p.pos }
func (p point) Bounds() vmath.AABB    { return vmath.AABBAround(p.pos, vmath.Vec3F{}) }
func (p point) Alive() bool           { return true }

func TestLODSystem_UsesCurrentCamera(t *testing.T) {
	calc := lod.New(lod.DefaultConfig(), nil, clock.NewMock(time.Unix(0, 0)), nil, nil, nil)
	h := calc.Register(point{pos: vmath.Vec3F{X: 100}}, nil)

	sys := NewLODSystem(calc, nil)
	sys.Update(0)
	info, _ := calc.Lookup(h)
	assert.Equal(t, calc.CullTier(), info.Tier)

	sys.SetCamera(lod.StaticCamera{Pos: vmath.Vec3F{X: 95}})
	calc.ForceUpdate(lod.StaticCamera{Pos: vmath.Vec3F{X: 95}})
	info, _ = calc.Lookup(h)
	assert.Equal(t, lod.Tier(0), info.Tier)
}

type countingTicker struct{ n int }

func (c *countingTicker) Tick() (int, bool) {
	c.n++
	return 0, true
}

func TestPoolSystem_TicksEveryPool(t *testing.T) {
	a, b := &countingTicker{}, &countingTicker{}
	sys := NewPoolSystem(a)
	sys.Add(b)
	sys.Update(0)
	sys.Update(0)
	assert.Equal(t, 2, a.n)
	assert.Equal(t, 2, b.n)
}
