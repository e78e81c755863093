package config

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/lixenwraith/perfgov/lod"
	"github.com/lixenwraith/perfgov/parameter"
	"github.com/lixenwraith/perfgov/platform"
	"github.com/lixenwraith/perfgov/quality"
)

const (
	maxTargetFPS    = 1000
	maxSampleWindow = 1024
)

type sanitizer struct {
	notes []string
}

func (s *sanitizer) notef(format string, args ...any) {
	s.notes = append(s.notes, fmt.Sprintf(format, args...))
}

func (s *sanitizer) ratio(name string, v *float64, def float64) {
	switch {
	case math.IsNaN(*v):
		s.notef("%s: NaN replaced with %v", name, def)
		*v = def
	case *v < 0:
		s.notef("%s: %v clamped to 0", name, *v)
		*v = 0
	case *v > 1:
		s.notef("%s: %v clamped to 1", name, *v)
		*v = 1
	}
}

func (s *sanitizer) positiveInt(name string, v *int, def int) {
	if *v <= 0 {
		s.notef("%s: %d replaced with %d", name, *v, def)
		*v = def
	}
}

func (s *sanitizer) positiveDuration(name string, v *Duration, def time.Duration) {
	if *v <= 0 {
		s.notef("%s: %v replaced with %v", name, v.D(), def)
		*v = Duration(def)
	}
}

func (s *sanitizer) nonNegativeDuration(name string, v *Duration) {
	if *v < 0 {
		s.notef("%s: %v clamped to 0", name, v.D())
		*v = 0
	}
}

// ordered raises hi to lo when they are inverted
func (s *sanitizer) ordered(loName, hiName string, lo float64, hi *float64) {
	if *hi < lo {
		s.notef("%s: %v raised to %s %v", hiName, *hi, loName, lo)
		*hi = lo
	}
}

// Sanitize clamps every out-of-range value to the nearest valid one and
// returns a note per adjustment; a sanitized config is left unchanged by a second call
func (c *Config) Sanitize() []string {
	s := &sanitizer{}

	f := &c.Frame
	if f.TargetFPS <= 0 || math.IsNaN(f.TargetFPS) {
		s.notef("frame.target_fps: %v replaced with %v", f.TargetFPS, parameter.TargetFrameRate)
		f.TargetFPS = parameter.TargetFrameRate
	} else if f.TargetFPS > maxTargetFPS {
		s.notef("frame.target_fps: %v clamped to %d", f.TargetFPS, maxTargetFPS)
		f.TargetFPS = maxTargetFPS
	}
	s.positiveInt("frame.sample_window", &f.SampleWindow, parameter.FrameSampleWindow)
	if f.SampleWindow > maxSampleWindow {
		s.notef("frame.sample_window: %d clamped to %d", f.SampleWindow, maxSampleWindow)
		f.SampleWindow = maxSampleWindow
	}
	s.positiveDuration("frame.tick_interval", &f.TickInterval, parameter.TickInterval)

	q := &c.Quality
	s.ratio("quality.critical_ratio", &q.Critical, parameter.CriticalRatio)
	s.ratio("quality.downgrade_ratio", &q.Downgrade, parameter.DowngradeRatio)
	s.ratio("quality.upgrade_ratio", &q.Upgrade, parameter.UpgradeRatio)
	s.ordered("quality.critical_ratio", "quality.downgrade_ratio", q.Critical, &q.Downgrade)
	s.ordered("quality.downgrade_ratio", "quality.upgrade_ratio", q.Downgrade, &q.Upgrade)
	s.positiveInt("quality.low_evaluations", &q.LowEvaluations, parameter.ConsecutiveLowEvaluations)
	s.positiveInt("quality.high_evaluations", &q.HighEvaluations, parameter.ConsecutiveHighEvaluations)
	s.nonNegativeDuration("quality.cooldown", &q.Cooldown)
	s.positiveDuration("quality.evaluation_interval", &q.EvaluationInterval, parameter.QualityEvaluationInterval)
	if q.ScaleStep <= 0 || q.ScaleStep > 1 || math.IsNaN(q.ScaleStep) {
		s.notef("quality.scale_step: %v replaced with %v", q.ScaleStep, parameter.RenderScaleStep)
		q.ScaleStep = parameter.RenderScaleStep
	}
	if q.InitialTier != "" {
		if _, ok := quality.ParseTier(q.InitialTier); !ok {
			s.notef("quality.initial_tier: %q ignored, following device class", q.InitialTier)
			q.InitialTier = ""
		}
	}

	l := &c.LOD
	if bands := lod.NormalizeBands(l.Bands); !slices.Equal(bands, l.Bands) {
		s.notef("lod.bands: %v normalized to %v", l.Bands, bands)
		l.Bands = bands
	}
	s.positiveDuration("lod.update_interval", &l.UpdateInterval, parameter.LODUpdateInterval)
	if l.Multiplier < 0 || math.IsNaN(l.Multiplier) {
		s.notef("lod.multiplier: %v reset to device default", l.Multiplier)
		l.Multiplier = 0
	}

	m := &c.Memory
	if m.TotalBudgetMB < 0 {
		s.notef("memory.total_budget_mb: %d reset to detected budget", m.TotalBudgetMB)
		m.TotalBudgetMB = 0
	}
	splits := []*float64{&m.TextureSplit, &m.MeshSplit, &m.AudioSplit, &m.OtherSplit}
	splitNames := []string{"texture_split", "mesh_split", "audio_split", "other_split"}
	sum := 0.0
	for i, v := range splits {
		if *v < 0 || math.IsNaN(*v) {
			s.notef("memory.%s: %v clamped to 0", splitNames[i], *v)
			*v = 0
		}
		sum += *v
	}
	if sum == 0 {
		s.notef("memory splits: all zero, using defaults")
		m.TextureSplit = parameter.TextureBudgetSplit
		m.MeshSplit = parameter.MeshBudgetSplit
		m.AudioSplit = parameter.AudioBudgetSplit
		m.OtherSplit = parameter.OtherBudgetSplit
	}
	overrides := []*int64{&m.TextureMB, &m.MeshMB, &m.AudioMB, &m.OtherMB}
	overrideNames := []string{"texture_mb", "mesh_mb", "audio_mb", "other_mb"}
	for i, v := range overrides {
		if *v < 0 {
			s.notef("memory.%s: %d clamped to minimum %d", overrideNames[i], *v, parameter.MinCategoryBudget>>20)
			*v = parameter.MinCategoryBudget >> 20
		}
	}
	s.ratio("memory.warning_ratio", &m.Warning, parameter.WarningRatio)
	s.ratio("memory.critical_ratio", &m.Critical, parameter.CriticalMemoryRatio)
	s.ratio("memory.emergency_ratio", &m.Emergency, parameter.EmergencyRatio)
	s.ordered("memory.warning_ratio", "memory.critical_ratio", m.Warning, &m.Critical)
	s.ordered("memory.critical_ratio", "memory.emergency_ratio", m.Critical, &m.Emergency)
	s.positiveInt("memory.max_evictions_per_cycle", &m.MaxEvictionsPerCycle, parameter.MaxEvictionsPerCycle)
	s.positiveDuration("memory.check_interval", &m.CheckInterval, parameter.MemoryCheckInterval)

	p := &c.Pool
	s.positiveInt("pool.max_size", &p.MaxSize, parameter.PoolDefaultMaxSize)
	if p.InitialSize < 0 {
		s.notef("pool.initial_size: %d clamped to 0", p.InitialSize)
		p.InitialSize = 0
	} else if p.InitialSize > p.MaxSize {
		s.notef("pool.initial_size: %d clamped to max_size %d", p.InitialSize, p.MaxSize)
		p.InitialSize = p.MaxSize
	}
	s.positiveDuration("pool.cleanup_interval", &p.CleanupInterval, parameter.PoolCleanupInterval)
	s.positiveDuration("pool.max_idle", &p.MaxIdle, parameter.PoolMaxIdle)

	s.nonNegativeDuration("asset.timeout", &c.Asset.Timeout)
	s.nonNegativeDuration("asset.latency", &c.Asset.Latency)

	lg := &c.Log
	lg.Level = strings.ToLower(strings.TrimSpace(lg.Level))
	if _, err := zapcore.ParseLevel(lg.Level); err != nil || lg.Level == "" {
		s.notef("log.level: %q replaced with info", lg.Level)
		lg.Level = "info"
	}
	if lg.MaxSizeMB <= 0 {
		s.notef("log.max_size_mb: %d replaced with 10", lg.MaxSizeMB)
		lg.MaxSizeMB = 10
	}
	if lg.MaxBackups < 0 {
		lg.MaxBackups = 0
	}
	if lg.MaxAgeDays < 0 {
		lg.MaxAgeDays = 0
	}

	if c.Debug.Enabled && c.Debug.Addr == "" {
		s.notef("debug.addr: empty, using %s", defaultDebugAddr)
		c.Debug.Addr = defaultDebugAddr
	}

	if _, _, err := platform.ParseClass(c.Platform.DeviceClass); err != nil {
		s.notef("platform.device_class: %q replaced with auto", c.Platform.DeviceClass)
		c.Platform.DeviceClass = "auto"
	}

	return s.notes
}
