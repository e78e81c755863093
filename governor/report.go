package governor

import (
	"github.com/lixenwraith/perfgov/budget"
	"github.com/lixenwraith/perfgov/quality"
	"github.com/lixenwraith/perfgov/sampler"
)

// CategoryReport is one memory category
type CategoryReport struct {
	Category string  `json:"category"`
	Usage    int64   `json:"usage_bytes"`
	Budget   int64   `json:"budget_bytes"`
	Ratio    float64 `json:"ratio"`
}

// Report is a consistent view of the governor taken between ticks
type Report struct {
	Frame         int64            `json:"frame"`
	DeviceClass   string           `json:"device_class"`
	FPS           sampler.Snapshot `json:"fps"`
	Tier          string           `json:"tier"`
	RenderScale   float64          `json:"render_scale"`
	Adaptive      bool             `json:"adaptive"`
	Settings      quality.Settings `json:"settings"`
	LODMultiplier float64          `json:"lod_multiplier"`
	LODTracked    int              `json:"lod_tracked"`
	LODTiers      []int            `json:"lod_tiers"`
	LODCost       int64            `json:"lod_cost"`
	Memory        []CategoryReport `json:"memory"`
	MemoryRatio   float64          `json:"memory_ratio"`
	Pressure      string           `json:"pressure"`
	Assets        int              `json:"assets"`
	PendingLoads  int              `json:"pending_loads"`
}

// Status snapshots every component
func (g *Governor) Status() Report {
	var r Report
	g.Engine.Do(func() {
		st := g.Quality.State()
		r = Report{
			DeviceClass:   g.Platform.Class.String(),
			FPS:           g.Sampler.Snapshot(),
			Tier:          st.Tier.String(),
			RenderScale:   st.RenderScale,
			Adaptive:      st.Adaptive,
			Settings:      g.Quality.Settings(),
			LODMultiplier: g.Quality.LODMultiplier(),
			LODTracked:    g.LOD.Len(),
			LODTiers:      g.LOD.TierCounts(),
			LODCost:       g.LOD.TotalCost(),
			MemoryRatio:   g.Budget.TotalUsageRatio(),
			Pressure:      g.Budget.Pressure().String(),
			Assets:        g.Budget.Len(),
			PendingLoads:  g.Loader.Pending(),
		}
		for c := range budget.CategoryCount {
			r.Memory = append(r.Memory, CategoryReport{
				Category: c.String(),
				Usage:    g.Budget.Usage(c),
				Budget:   g.Budget.Budget(c),
				Ratio:    g.Budget.UsageRatio(c),
			})
		}
	})
	r.Frame = g.Engine.Frame()
	return r
}

// SetTier forces a quality tier between ticks
func (g *Governor) SetTier(t quality.Tier) {
	g.Engine.Do(func() { g.Quality.SetTier(t) })
}

// SetAdaptive toggles automatic quality control between ticks
func (g *Governor) SetAdaptive(on bool) {
	g.Engine.Do(func() { g.Quality.SetAdaptive(on) })
}
