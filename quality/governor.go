// Package quality drives discrete quality tiers and a continuous render scale
// from sampled frame rates, with hysteresis and a shared cooldown
package quality

import (
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lixenwraith/perfgov/clock"
	"github.com/lixenwraith/perfgov/event"
	"github.com/lixenwraith/perfgov/parameter"
	"github.com/lixenwraith/perfgov/sampler"
	"github.com/lixenwraith/perfgov/status"
)

const scaleEpsilon = 1e-9

// Thresholds are achieved/target frame-rate ratios
type Thresholds struct {
	Downgrade float64
	Upgrade   float64
	Critical  float64
}

// Config parameterizes a Governor
type Config struct {
	TargetFPS       float64
	Thresholds      Thresholds
	LowEvaluations  int
	HighEvaluations int
	Cooldown        time.Duration
	ScaleStep       float64
	InitialTier     Tier
	Tiers           [TierCount]Settings
}

// DefaultConfig returns the parameter package defaults
func DefaultConfig() Config {
	return Config{
		TargetFPS: parameter.TargetFrameRate,
		Thresholds: Thresholds{
			Downgrade: parameter.DowngradeRatio,
			Upgrade:   parameter.UpgradeRatio,
			Critical:  parameter.CriticalRatio,
		},
		LowEvaluations:  parameter.ConsecutiveLowEvaluations,
		HighEvaluations: parameter.ConsecutiveHighEvaluations,
		Cooldown:        parameter.QualityCooldown,
		ScaleStep:       parameter.RenderScaleStep,
		InitialTier:     TierHigh,
		Tiers:           DefaultTierSettings(),
	}
}

// Action is the outcome of one evaluation
type Action int

const (
	ActionNone Action = iota
	ActionScaleDown
	ActionScaleUp
	ActionTierDown
	ActionTierUp
)

func (a Action) String() string {
	switch a {
	case ActionScaleDown:
		return "scale_down"
	case ActionScaleUp:
		return "scale_up"
	case ActionTierDown:
		return "tier_down"
	case ActionTierUp:
		return "tier_up"
	default:
		return "none"
	}
}

// Decision reports what an evaluation did and the resulting state
type Decision struct {
	Action      Action
	Ratio       float64
	Tier        Tier
	RenderScale float64
}

// State is a read-only view of the controller internals
type State struct {
	Tier            Tier
	RenderScale     float64
	ConsecutiveLow  int
	ConsecutiveHigh int
	LastAdjust      time.Time
	Adaptive        bool
}

// Governor is the closed-loop quality controller
// Scale is adjusted first; a tier only changes once scale is exhausted
// in that direction, or immediately on a critical downgrade
// Not safe for concurrent use, driven from the tick thread
type Governor struct {
	cfg    Config
	clock  clock.Clock
	events event.Emitter
	logger *zap.Logger

	tier            Tier
	scale           float64
	consecutiveLow  int
	consecutiveHigh int
	lastAdjust      time.Time
	adaptive        bool

	statTier        *atomic.Int64
	statTierName    *status.AtomicString
	statScale       *status.AtomicFloat
	statRatio       *status.AtomicFloat
	statAdjustments *atomic.Int64
}

// New creates a governor at cfg.InitialTier with that tier's default scale
func New(cfg Config, clk clock.Clock, events event.Emitter, reg *status.Registry, logger *zap.Logger) *Governor {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg = status.OrNew(reg)
	if !cfg.InitialTier.Valid() {
		cfg.InitialTier = TierHigh
	}

	g := &Governor{
		cfg:      cfg,
		clock:    clock.OrReal(clk),
		events:   event.OrDiscard(events),
		logger:   logger.With(zap.String("module", "quality")),
		tier:     cfg.InitialTier,
		scale:    cfg.Tiers[cfg.InitialTier].RenderScale,
		adaptive: true,

		statTier:        reg.Ints.Get("quality.tier"),
		statTierName:    reg.Strings.Get("quality.tier_name"),
		statScale:       reg.Floats.Get("quality.render_scale"),
		statRatio:       reg.Floats.Get("quality.ratio"),
		statAdjustments: reg.Ints.Get("quality.adjustments"),
	}
	g.publishState()
	return g
}

// Evaluate consumes one sampler snapshot and applies at most one adjustment
func (g *Governor) Evaluate(snap sampler.Snapshot) Decision {
	if snap.Samples == 0 || g.cfg.TargetFPS <= 0 {
		return g.decision(ActionNone, 0)
	}

	ratio := snap.AverageFPS / g.cfg.TargetFPS
	g.statRatio.Set(ratio)

	switch {
	case ratio < g.cfg.Thresholds.Downgrade:
		g.consecutiveLow++
		g.consecutiveHigh = 0
	case ratio > g.cfg.Thresholds.Upgrade:
		g.consecutiveHigh++
		g.consecutiveLow = 0
	default:
		g.consecutiveLow = 0
		g.consecutiveHigh = 0
	}

	if !g.adaptive {
		return g.decision(ActionNone, ratio)
	}

	now := g.clock.Now()
	if !g.cooledDown(now) {
		return g.decision(ActionNone, ratio)
	}

	if g.consecutiveLow >= g.cfg.LowEvaluations {
		return g.decision(g.stepDown(ratio < g.cfg.Thresholds.Critical, now), ratio)
	}
	if g.consecutiveHigh >= g.cfg.HighEvaluations {
		return g.decision(g.stepUp(now), ratio)
	}
	return g.decision(ActionNone, ratio)
}

// SetTier forces a tier, resetting scale and counters and starting a cooldown
func (g *Governor) SetTier(t Tier) {
	if !t.Valid() {
		g.logger.Warn("ignoring invalid tier", zap.Int("tier", int(t)))
		return
	}
	g.changeTier(t, "manual", g.clock.Now())
}

// SetAdaptive enables or freezes automatic control; counters keep tracking
func (g *Governor) SetAdaptive(on bool) {
	g.adaptive = on
}

// Tier returns the current tier
func (g *Governor) Tier() Tier {
	return g.tier
}

// RenderScale returns the current continuous scale
func (g *Governor) RenderScale() float64 {
	return g.scale
}

// Settings returns the current tier bundle with RenderScale set to the live scale
func (g *Governor) Settings() Settings {
	s := g.cfg.Tiers[g.tier]
	s.RenderScale = g.scale
	return s
}

// LODMultiplier is the global factor applied to LOD distance bands
// It follows the tier bias and shrinks proportionally as scale drops below the tier default
func (g *Governor) LODMultiplier() float64 {
	s := g.cfg.Tiers[g.tier]
	if s.RenderScale <= 0 {
		return s.LODBias
	}
	return s.LODBias * g.scale / s.RenderScale
}

// State returns the controller internals for inspection
func (g *Governor) State() State {
	return State{
		Tier:            g.tier,
		RenderScale:     g.scale,
		ConsecutiveLow:  g.consecutiveLow,
		ConsecutiveHigh: g.consecutiveHigh,
		LastAdjust:      g.lastAdjust,
		Adaptive:        g.adaptive,
	}
}

func (g *Governor) cooledDown(now time.Time) bool {
	return g.lastAdjust.IsZero() || now.Sub(g.lastAdjust) >= g.cfg.Cooldown
}

func (g *Governor) stepDown(critical bool, now time.Time) Action {
	s := g.cfg.Tiers[g.tier]
	canScale := g.scale > s.MinScale+scaleEpsilon

	if g.tier > TierLow && (critical || !canScale) {
		reason := "downgrade"
		if critical {
			reason = "critical"
		}
		g.changeTier(g.tier-1, reason, now)
		return ActionTierDown
	}
	if canScale {
		g.setScale(math.Max(s.MinScale, g.scale-g.cfg.ScaleStep), now)
		return ActionScaleDown
	}
	return ActionNone
}

func (g *Governor) stepUp(now time.Time) Action {
	s := g.cfg.Tiers[g.tier]
	if g.scale < s.MaxScale-scaleEpsilon {
		g.setScale(math.Min(s.MaxScale, g.scale+g.cfg.ScaleStep), now)
		return ActionScaleUp
	}
	if g.tier < TierHigh {
		g.changeTier(g.tier+1, "upgrade", now)
		return ActionTierUp
	}
	return ActionNone
}

func (g *Governor) setScale(scale float64, now time.Time) {
	old := g.scale
	g.scale = scale
	g.lastAdjust = now
	g.statAdjustments.Add(1)
	g.publishState()

	g.events.Push(event.Event{
		Type: event.EventRenderScaleChanged,
		Payload: &event.RenderScaleChangedPayload{
			Tier:     int(g.tier),
			OldScale: old,
			NewScale: scale,
		},
	})
	g.logger.Debug("render scale adjusted",
		zap.Stringer("tier", g.tier),
		zap.Float64("from", old),
		zap.Float64("to", scale))
}

func (g *Governor) changeTier(to Tier, reason string, now time.Time) {
	from := g.tier
	g.tier = to
	g.scale = g.cfg.Tiers[to].RenderScale
	g.consecutiveLow = 0
	g.consecutiveHigh = 0
	g.lastAdjust = now
	g.statAdjustments.Add(1)
	g.publishState()

	if from == to {
		return
	}
	g.events.Push(event.Event{
		Type: event.EventTierChanged,
		Payload: &event.TierChangedPayload{
			From:        int(from),
			To:          int(to),
			FromName:    from.String(),
			ToName:      to.String(),
			RenderScale: g.scale,
			Reason:      reason,
		},
	})
	g.logger.Info("quality tier changed",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.String("reason", reason))
}

func (g *Governor) publishState() {
	g.statTier.Store(int64(g.tier))
	g.statTierName.Store(g.tier.String())
	g.statScale.Set(g.scale)
}

func (g *Governor) decision(a Action, ratio float64) Decision {
	return Decision{Action: a, Ratio: ratio, Tier: g.tier, RenderScale: g.scale}
}
