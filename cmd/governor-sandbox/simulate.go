package main

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lixenwraith/perfgov/budget"
	"github.com/lixenwraith/perfgov/clock"
	"github.com/lixenwraith/perfgov/config"
	"github.com/lixenwraith/perfgov/event"
	"github.com/lixenwraith/perfgov/governor"
	"github.com/lixenwraith/perfgov/platform"
	"github.com/lixenwraith/perfgov/vmath"
)

const defaultScript = "60x120,25x240,60x600"

type simOptions struct {
	Script     string
	Objects    int
	Spacing    float64
	AssetEvery int
	AssetMB    int64
}

var simOpts = simOptions{
	Script:  defaultScript,
	Objects: 64,
	Spacing: 2,
	AssetMB: 4,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Drive the governor headless with scripted frame times and report",
	Long: `Runs the governor against a mock clock. The script is a comma separated list
of <fps>x<frames> segments; every frame advances the clock by 1/fps.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		script, err := parseScript(simOpts.Script)
		if err != nil {
			return err
		}
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		sim, err := newSimulation(cfg, governor.DetectPlatform(cfg), logger, simOpts)
		if err != nil {
			return err
		}
		defer sim.Close()

		sim.Run(script)
		sim.printReport()
		return nil
	},
}

func init() {
	f := simulateCmd.Flags()
	f.StringVarP(&simOpts.Script, "script", "s", defaultScript, "frame-rate script, <fps>x<frames>,...")
	f.IntVar(&simOpts.Objects, "objects", simOpts.Objects, "tracked objects placed along the view axis")
	f.Float64Var(&simOpts.Spacing, "spacing", simOpts.Spacing, "distance between tracked objects in meters")
	f.IntVar(&simOpts.AssetEvery, "asset-every", 0, "stream a texture every N frames, 0 disables")
	f.Int64Var(&simOpts.AssetMB, "asset-mb", simOpts.AssetMB, "size of each streamed texture in MB")
}

// prop is a static scene object tracked for LOD
type prop struct {
	pos vmath.Vec3F
}

func (p *prop) Position() vmath.Vec3F { return p.pos }
func (p *prop) Bounds() vmath.AABB {
	return vmath.AABBAround(p.pos, vmath.Vec3F{X: 1, Y: 1, Z: 1})
}
func (p *prop) Alive() bool { return true }

// propCosts are per-tier triangle counts
var propCosts = []int64{4000, 1500, 400}

type milestone struct {
	Frame  int64
	At     time.Duration
	Kind   string
	Detail string
}

type simulation struct {
	g    *governor.Governor
	clk  *clock.Mock
	opts simOptions

	elapsed      time.Duration
	streamed     int
	timeline     []milestone
	evictions    int
	evictedBytes int64
	unsubscribe  func()
}

func newSimulation(cfg *config.Config, info platform.Info, logger *zap.Logger, opts simOptions) (*simulation, error) {
	clk := clock.NewMock(time.Unix(0, 0))
	g, err := governor.New(cfg, info, governor.Deps{Clock: clk, Logger: logger})
	if err != nil {
		return nil, err
	}
	s := &simulation{g: g, clk: clk, opts: opts}

	s.unsubscribe, err = g.Bus.SubscribeAll(s.observe)
	if err != nil {
		_ = g.Close()
		return nil, err
	}

	g.Do(func() {
		for i := range opts.Objects {
			g.LOD.Register(&prop{pos: vmath.Vec3F{Z: float64(i+1) * opts.Spacing}}, propCosts)
		}
	})
	return s, nil
}

func (s *simulation) observe(ev event.Event) {
	switch p := ev.Payload.(type) {
	case *event.TierChangedPayload:
		s.mark(ev.Frame, "tier", fmt.Sprintf("%s -> %s (%s)", p.FromName, p.ToName, p.Reason))
	case *event.RenderScaleChangedPayload:
		s.mark(ev.Frame, "scale", fmt.Sprintf("%.2f -> %.2f", p.OldScale, p.NewScale))
	case *event.MemoryPressurePayload:
		s.mark(ev.Frame, "memory", fmt.Sprintf("%s %s -> %s (%.0f%%)", p.Scope, p.Previous, p.Level, p.Ratio*100))
	case *event.AssetEvictedPayload:
		s.evictions++
		s.evictedBytes += p.Size
	case *event.ReclaimRequestedPayload:
		s.mark(ev.Frame, "reclaim", fmt.Sprintf("%d assets, %s", p.Evicted, formatBytes(p.FreedBytes)))
	}
}

func (s *simulation) mark(frame int64, kind, detail string) {
	s.timeline = append(s.timeline, milestone{
		Frame:  frame,
		At:     s.elapsed,
		Kind:   kind,
		Detail: detail,
	})
}

// Run plays every segment, advancing the mock clock before each tick
func (s *simulation) Run(script []segment) {
	frame := 0
	for _, seg := range script {
		dt := seg.Delta()
		for range seg.Frames {
			frame++
			if s.opts.AssetEvery > 0 && frame%s.opts.AssetEvery == 0 {
				s.stream()
			}
			s.clk.Advance(dt)
			s.elapsed += dt
			s.g.Tick(dt)
		}
	}
}

// stream registers one more resident texture, as a level streamer would
func (s *simulation) stream() {
	s.streamed++
	id := fmt.Sprintf("texture-%04d", s.streamed)
	size := s.opts.AssetMB << 20
	s.g.Do(func() {
		if err := s.g.Budget.RegisterAsset(id, budget.CategoryTexture, size, false, s.streamed%3); err != nil {
			s.g.Logger.Warn("stream failed", zap.String("asset", id), zap.Error(err))
		}
	})
}

// Close releases the governor
func (s *simulation) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	return s.g.Close()
}

func (s *simulation) printReport() {
	r := s.g.Status()

	pterm.DefaultSection.Println("Timeline")
	if len(s.timeline) == 0 {
		pterm.Info.Println("no adjustments")
	} else {
		data := pterm.TableData{{"Frame", "Time", "Kind", "Detail"}}
		for _, m := range s.timeline {
			data = append(data, []string{
				fmt.Sprint(m.Frame),
				m.At.Round(time.Millisecond).String(),
				m.Kind,
				m.Detail,
			})
		}
		_ = pterm.DefaultTable.WithHasHeader(true).WithData(data).Render()
	}

	pterm.DefaultSection.Println("Final state")
	_ = pterm.DefaultTable.WithHasHeader(false).WithData(pterm.TableData{
		{"Frames", fmt.Sprint(r.Frame)},
		{"Simulated time", s.elapsed.Round(time.Millisecond).String()},
		{"Device class", r.DeviceClass},
		{"Tier", r.Tier},
		{"Render scale", fmt.Sprintf("%.2f", r.RenderScale)},
		{"Average FPS", fmt.Sprintf("%.1f", r.FPS.AverageFPS)},
		{"LOD multiplier", fmt.Sprintf("%.2f", r.LODMultiplier)},
		{"LOD tiers", fmt.Sprint(r.LODTiers)},
		{"LOD cost", fmt.Sprint(r.LODCost)},
		{"Streamed assets", fmt.Sprint(s.streamed)},
		{"Evictions", fmt.Sprintf("%d (%s)", s.evictions, formatBytes(s.evictedBytes))},
		{"Memory pressure", r.Pressure},
	}).Render()

	pterm.DefaultSection.Println("Memory")
	mem := pterm.TableData{{"Category", "Usage", "Budget", "Ratio"}}
	for _, c := range r.Memory {
		mem = append(mem, []string{c.Category, formatBytes(c.Usage), formatBytes(c.Budget), fmt.Sprintf("%.1f%%", c.Ratio*100)})
	}
	_ = pterm.DefaultTable.WithHasHeader(true).WithData(mem).Render()

	pterm.Success.Printfln("finished at %s quality with %d milestones", r.Tier, len(s.timeline))
}

func formatBytes(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	}
	return fmt.Sprintf("%d B", n)
}
