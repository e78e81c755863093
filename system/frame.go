package system

import (
	"time"

	"github.com/lixenwraith/perfgov/engine"
	"github.com/lixenwraith/perfgov/parameter"
	"github.com/lixenwraith/perfgov/sampler"
	"github.com/lixenwraith/perfgov/status"
)

// FrameSystem feeds each tick delta into the frame sampler
// Runs first so every later system sees the current frame
type FrameSystem struct {
	sampler *sampler.Sampler

	statAvg     *status.AtomicFloat
	statMin     *status.AtomicFloat
	statMax     *status.AtomicFloat
	statInstant *status.AtomicFloat
}

// NewFrameSystem creates the frame system
func NewFrameSystem(s *sampler.Sampler, reg *status.Registry) engine.System {
	reg = status.OrNew(reg)
	return &FrameSystem{
		sampler:     s,
		statAvg:     reg.Floats.Get("frame.fps.avg"),
		statMin:     reg.Floats.Get("frame.fps.min"),
		statMax:     reg.Floats.Get("frame.fps.max"),
		statInstant: reg.Floats.Get("frame.fps.instant"),
	}
}

func (s *FrameSystem) Name() string { return "frame" }

func (s *FrameSystem) Priority() int { return parameter.PriorityFrame }

// Update records dt and publishes the window summary
func (s *FrameSystem) Update(dt time.Duration) {
	s.sampler.Record(dt)
	snap := s.sampler.Snapshot()
	s.statAvg.Set(snap.AverageFPS)
	s.statMin.Set(snap.MinFPS)
	s.statMax.Set(snap.MaxFPS)
	s.statInstant.Set(snap.InstantFPS)
}
