package governor

import (
	"github.com/lixenwraith/perfgov/budget"
	"github.com/lixenwraith/perfgov/config"
	"github.com/lixenwraith/perfgov/lod"
	"github.com/lixenwraith/perfgov/platform"
	"github.com/lixenwraith/perfgov/quality"
)

// QualityConfig maps configuration onto the quality governor
// The initial tier follows the device class unless configured
func QualityConfig(cfg *config.Config, info platform.Info) quality.Config {
	qc := quality.DefaultConfig()
	qc.TargetFPS = cfg.Frame.TargetFPS
	qc.Thresholds = quality.Thresholds{
		Downgrade: cfg.Quality.Downgrade,
		Upgrade:   cfg.Quality.Upgrade,
		Critical:  cfg.Quality.Critical,
	}
	qc.LowEvaluations = cfg.Quality.LowEvaluations
	qc.HighEvaluations = cfg.Quality.HighEvaluations
	qc.Cooldown = cfg.Quality.Cooldown.D()
	qc.ScaleStep = cfg.Quality.ScaleStep
	qc.InitialTier = info.Profile().InitialTier
	if t, ok := quality.ParseTier(cfg.Quality.InitialTier); ok {
		qc.InitialTier = t
	}
	return qc
}

// LODConfig maps configuration onto the band calculator
func LODConfig(cfg *config.Config, info platform.Info) lod.Config {
	lc := lod.DefaultConfig()
	lc.Bands = cfg.LOD.Bands
	lc.UpdateInterval = cfg.LOD.UpdateInterval.D()
	lc.PlatformMultiplier = info.Profile().LODMultiplier
	if cfg.LOD.Multiplier > 0 {
		lc.PlatformMultiplier = cfg.LOD.Multiplier
	}
	return lc
}

// BudgetConfig maps configuration onto the memory tracker
// The total comes from configuration or the host, then per-category overrides apply
func BudgetConfig(cfg *config.Config, info platform.Info) budget.Config {
	m := cfg.Memory
	total := m.TotalBudgetMB << 20
	if total <= 0 {
		total = info.DefaultBudget()
	}

	bc := budget.DefaultConfig()
	bc.Budgets = budget.SplitBudget(total, budget.Splits{
		budget.CategoryTexture: m.TextureSplit,
		budget.CategoryMesh:    m.MeshSplit,
		budget.CategoryAudio:   m.AudioSplit,
		budget.CategoryOther:   m.OtherSplit,
	})
	overrides := [budget.CategoryCount]int64{m.TextureMB, m.MeshMB, m.AudioMB, m.OtherMB}
	for c, mb := range overrides {
		if mb > 0 {
			bc.Budgets[c] = mb << 20
		}
	}
	bc.Thresholds = budget.Thresholds{
		Warning:   m.Warning,
		Critical:  m.Critical,
		Emergency: m.Emergency,
	}
	bc.MaxEvictionsPerCycle = m.MaxEvictionsPerCycle
	bc.CheckInterval = m.CheckInterval.D()
	return bc
}

// DetectPlatform inspects the host and applies the configured class override
func DetectPlatform(cfg *config.Config) platform.Info {
	info := platform.Detect()
	if c, ok, err := platform.ParseClass(cfg.Platform.DeviceClass); err == nil && ok {
		info = info.WithClass(c)
	}
	return info
}
