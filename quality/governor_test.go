package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/perfgov/clock"
	"github.com/lixenwraith/perfgov/event"
	"github.com/lixenwraith/perfgov/sampler"
	"github.com/lixenwraith/perfgov/status"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func snap(fps float64) sampler.Snapshot {
	return sampler.Snapshot{AverageFPS: fps, Samples: 60}
}

func newTestGovernor(t *testing.T) (*Governor, *clock.Mock, *event.Queue) {
	t.Helper()
	clk := clock.NewMock(epoch)
	q := event.NewQueue()
	return New(DefaultConfig(), clk, q, status.NewRegistry(), nil), clk, q
}

func eventsOf(q *event.Queue, typ event.Type) []event.Event {
	var out []event.Event
	for _, ev := range q.Consume() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func TestGovernor_DowngradesOnThirdConsecutiveLow(t *testing.T) {
	g, clk, q := newTestGovernor(t)

	var actions []Action
	for i := 0; i < 5; i++ {
		d := g.Evaluate(snap(25))
		actions = append(actions, d.Action)
		clk.Advance(100 * time.Millisecond)
	}

	assert.Equal(t, []Action{ActionNone, ActionNone, ActionTierDown, ActionNone, ActionNone}, actions)
	assert.Equal(t, TierMedium, g.Tier())
	assert.Equal(t, DefaultTierSettings()[TierMedium].RenderScale, g.RenderScale())

	changes := eventsOf(q, event.EventTierChanged)
	require.Len(t, changes, 1)
	p := changes[0].Payload.(*event.TierChangedPayload)
	assert.Equal(t, "high", p.FromName)
	assert.Equal(t, "medium", p.ToName)
	assert.Equal(t, "critical", p.Reason)
}

func TestGovernor_ScaleAbsorbsBeforeTierDrop(t *testing.T) {
	g, clk, q := newTestGovernor(t)
	cfg := DefaultConfig()

	// 36/60 = 0.6: low but not critical
	for i := 0; i < 2; i++ {
		assert.Equal(t, ActionNone, g.Evaluate(snap(36)).Action)
	}
	d := g.Evaluate(snap(36))
	assert.Equal(t, ActionScaleDown, d.Action)
	assert.InDelta(t, 0.9, d.RenderScale, 1e-9)
	assert.Equal(t, TierHigh, d.Tier)

	clk.Advance(cfg.Cooldown)
	d = g.Evaluate(snap(36))
	assert.Equal(t, ActionScaleDown, d.Action)
	assert.InDelta(t, cfg.Tiers[TierHigh].MinScale, d.RenderScale, 1e-9, "clamped to tier minimum")

	clk.Advance(cfg.Cooldown)
	d = g.Evaluate(snap(36))
	assert.Equal(t, ActionTierDown, d.Action)
	assert.Equal(t, TierMedium, g.Tier())

	evs := q.Consume()
	require.Len(t, evs, 3)
	assert.Equal(t, event.EventRenderScaleChanged, evs[0].Type)
	assert.Equal(t, event.EventRenderScaleChanged, evs[1].Type)
	assert.Equal(t, event.EventTierChanged, evs[2].Type)
}

func TestGovernor_ScaleChangesEmitScaleEvents(t *testing.T) {
	g, _, q := newTestGovernor(t)
	for i := 0; i < 3; i++ {
		g.Evaluate(snap(36))
	}
	evs := q.Consume()
	require.Len(t, evs, 1)
	assert.Equal(t, event.EventRenderScaleChanged, evs[0].Type)
	p := evs[0].Payload.(*event.RenderScaleChangedPayload)
	assert.InDelta(t, 1.0, p.OldScale, 1e-9)
	assert.InDelta(t, 0.9, p.NewScale, 1e-9)
}

func TestGovernor_AtMostOneAdjustmentPerCooldown(t *testing.T) {
	g, clk, _ := newTestGovernor(t)
	cfg := DefaultConfig()

	var adjustTimes []time.Time
	for i := 0; i < 200; i++ {
		fps := 20.0
		if (i/25)%2 == 1 {
			fps = 70
		}
		if d := g.Evaluate(snap(fps)); d.Action != ActionNone {
			adjustTimes = append(adjustTimes, clk.Now())
		}
		clk.Advance(250 * time.Millisecond)
	}

	require.NotEmpty(t, adjustTimes)
	for i := 1; i < len(adjustTimes); i++ {
		assert.GreaterOrEqual(t, adjustTimes[i].Sub(adjustTimes[i-1]), cfg.Cooldown)
	}
}

func TestGovernor_UpgradeRaisesScaleThenPromotes(t *testing.T) {
	clk := clock.NewMock(epoch)
	cfg := DefaultConfig()
	cfg.InitialTier = TierMedium
	g := New(cfg, clk, nil, nil, nil)

	for i := 0; i < 4; i++ {
		assert.Equal(t, ActionNone, g.Evaluate(snap(60)).Action)
	}
	d := g.Evaluate(snap(60))
	assert.Equal(t, ActionScaleUp, d.Action)
	assert.InDelta(t, 0.95, d.RenderScale, 1e-9)

	clk.Advance(cfg.Cooldown)
	d = g.Evaluate(snap(60))
	assert.Equal(t, ActionTierUp, d.Action)
	assert.Equal(t, TierHigh, g.Tier())
	assert.Equal(t, 1.0, g.RenderScale())

	st := g.State()
	assert.Zero(t, st.ConsecutiveHigh)
	assert.Zero(t, st.ConsecutiveLow)
}

func TestGovernor_InBandResetsCounters(t *testing.T) {
	g, _, _ := newTestGovernor(t)
	g.Evaluate(snap(25))
	g.Evaluate(snap(25))
	assert.Equal(t, 2, g.State().ConsecutiveLow)

	g.Evaluate(snap(48)) // 0.8: between thresholds
	assert.Zero(t, g.State().ConsecutiveLow)
	assert.Zero(t, g.State().ConsecutiveHigh)

	g.Evaluate(snap(25))
	g.Evaluate(snap(25))
	assert.Equal(t, TierHigh, g.Tier(), "streak restarted")
}

func TestGovernor_FloorAndCeiling(t *testing.T) {
	clk := clock.NewMock(epoch)
	cfg := DefaultConfig()
	cfg.InitialTier = TierLow
	cfg.Cooldown = 0
	g := New(cfg, clk, nil, nil, nil)

	for i := 0; i < 20; i++ {
		g.Evaluate(snap(10))
	}
	assert.Equal(t, TierLow, g.Tier())
	assert.InDelta(t, cfg.Tiers[TierLow].MinScale, g.RenderScale(), 1e-9)

	for i := 0; i < 100; i++ {
		g.Evaluate(snap(120))
	}
	assert.Equal(t, TierHigh, g.Tier())
	assert.InDelta(t, cfg.Tiers[TierHigh].MaxScale, g.RenderScale(), 1e-9)
}

func TestGovernor_SetTierAndAdaptive(t *testing.T) {
	g, clk, q := newTestGovernor(t)

	g.SetTier(TierLow)
	assert.Equal(t, TierLow, g.Tier())
	changes := eventsOf(q, event.EventTierChanged)
	require.Len(t, changes, 1)
	assert.Equal(t, "manual", changes[0].Payload.(*event.TierChangedPayload).Reason)

	g.SetTier(Tier(7))
	assert.Equal(t, TierLow, g.Tier())

	g.SetAdaptive(false)
	clk.Advance(time.Minute)
	for i := 0; i < 10; i++ {
		assert.Equal(t, ActionNone, g.Evaluate(snap(120)).Action)
	}
	assert.Equal(t, 10, g.State().ConsecutiveHigh)
	assert.False(t, g.State().Adaptive)
}

func TestGovernor_IgnoresEmptySnapshot(t *testing.T) {
	g, _, _ := newTestGovernor(t)
	d := g.Evaluate(sampler.Snapshot{})
	assert.Equal(t, ActionNone, d.Action)
	assert.Zero(t, g.State().ConsecutiveLow)
}

func TestGovernor_LODMultiplierAndStatus(t *testing.T) {
	clk := clock.NewMock(epoch)
	reg := status.NewRegistry()
	g := New(DefaultConfig(), clk, nil, reg, nil)
	assert.InDelta(t, 1.0, g.LODMultiplier(), 1e-9)

	for i := 0; i < 3; i++ {
		g.Evaluate(snap(36))
	}
	assert.InDelta(t, 0.9, g.LODMultiplier(), 1e-9)
	assert.InDelta(t, 0.9, reg.Floats.Get("quality.render_scale").Get(), 1e-9)

	g.SetTier(TierLow)
	assert.InDelta(t, 0.6, g.LODMultiplier(), 1e-9)
	assert.Equal(t, "low", reg.Strings.Get("quality.tier_name").Load())
	assert.Equal(t, int64(TierLow), reg.Ints.Get("quality.tier").Load())
}

func TestParseTier(t *testing.T) {
	for _, tier := range []Tier{TierLow, TierMedium, TierHigh} {
		got, ok := ParseTier(tier.String())
		assert.True(t, ok)
		assert.Equal(t, tier, got)
	}
	_, ok := ParseTier("ultra")
	assert.False(t, ok)
	assert.Equal(t, "tier(9)", Tier(9).String())
}
