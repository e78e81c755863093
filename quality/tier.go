package quality

import (
	"fmt"
	"strings"
)

// Tier is a discrete quality level, ordered Low < Medium < High
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh

	TierCount = 3
)

var tierNames = [TierCount]string{"low", "medium", "high"}

func (t Tier) String() string {
	if t < TierLow || t > TierHigh {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// Valid reports whether t is one of the three tiers
func (t Tier) Valid() bool {
	return t >= TierLow && t <= TierHigh
}

// ParseTier resolves a tier name, case-insensitive
func ParseTier(s string) (Tier, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range tierNames {
		if n == s {
			return Tier(i), true
		}
	}
	return TierHigh, false
}

// Settings is the rendering parameter bundle owned by a tier
type Settings struct {
	// RenderScale is the default resolution scale on entering the tier
	RenderScale float64 `json:"render_scale"`
	// MinScale and MaxScale bound continuous adjustment within the tier
	MinScale float64 `json:"min_scale"`
	MaxScale float64 `json:"max_scale"`

	ShadowDistance float64 `json:"shadow_distance"`
	ShadowCascades int     `json:"shadow_cascades"`
	MaxLights      int     `json:"max_lights"`
	TextureDivisor int     `json:"texture_divisor"`
	ParticleBudget int     `json:"particle_budget"`

	// LODBias multiplies LOD distance bands
	LODBias float64 `json:"lod_bias"`
}

// DefaultTierSettings returns the Low, Medium and High bundles
func DefaultTierSettings() [TierCount]Settings {
	return [TierCount]Settings{
		TierLow: {
			RenderScale: 0.7, MinScale: 0.5, MaxScale: 0.8,
			ShadowDistance: 20, ShadowCascades: 1, MaxLights: 2,
			TextureDivisor: 4, ParticleBudget: 256, LODBias: 0.6,
		},
		TierMedium: {
			RenderScale: 0.85, MinScale: 0.7, MaxScale: 0.95,
			ShadowDistance: 50, ShadowCascades: 2, MaxLights: 4,
			TextureDivisor: 2, ParticleBudget: 1024, LODBias: 0.8,
		},
		TierHigh: {
			RenderScale: 1.0, MinScale: 0.85, MaxScale: 1.0,
			ShadowDistance: 100, ShadowCascades: 4, MaxLights: 8,
			TextureDivisor: 1, ParticleBudget: 4096, LODBias: 1.0,
		},
	}
}
