package system

import (
	"time"

	"github.com/lixenwraith/perfgov/clock"
	"github.com/lixenwraith/perfgov/engine"
	"github.com/lixenwraith/perfgov/parameter"
	"github.com/lixenwraith/perfgov/quality"
	"github.com/lixenwraith/perfgov/sampler"
)

// QualitySystem evaluates the governor against the sampler at a fixed cadence
type QualitySystem struct {
	governor *quality.Governor
	sampler  *sampler.Sampler
	clock    clock.Clock
	interval time.Duration
	last     time.Time
}

// NewQualitySystem creates the quality system; interval <= 0 evaluates every tick
func NewQualitySystem(g *quality.Governor, s *sampler.Sampler, clk clock.Clock, interval time.Duration) engine.System {
	return &QualitySystem{
		governor: g,
		sampler:  s,
		clock:    clock.OrReal(clk),
		interval: interval,
	}
}

func (s *QualitySystem) Name() string { return "quality" }

func (s *QualitySystem) Priority() int { return parameter.PriorityQuality }

func (s *QualitySystem) Update(time.Duration) {
	now := s.clock.Now()
	if !s.last.IsZero() && now.Sub(s.last) < s.interval {
		return
	}
	s.last = now
	s.governor.Evaluate(s.sampler.Snapshot())
}
