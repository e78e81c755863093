package system

import (
	"time"

	"github.com/lixenwraith/perfgov/budget"
	"github.com/lixenwraith/perfgov/engine"
	"github.com/lixenwraith/perfgov/parameter"
)

// MemorySystem classifies budgets and evicts at the tracker's check interval
type MemorySystem struct {
	tracker *budget.Tracker
}

func NewMemorySystem(t *budget.Tracker) engine.System {
	return &MemorySystem{tracker: t}
}

func (s *MemorySystem) Name() string { return "memory" }

func (s *MemorySystem) Priority() int { return parameter.PriorityMemory }

func (s *MemorySystem) Update(time.Duration) {
	s.tracker.Update()
}
