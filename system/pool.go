package system

import (
	"time"

	"github.com/lixenwraith/perfgov/parameter"
)

// Ticker is the cadence-gated maintenance hook of a pool
type Ticker interface {
	Tick() (int, bool)
}

// PoolSystem runs idle cleanup for every registered pool
type PoolSystem struct {
	pools []Ticker
}

func NewPoolSystem(pools ...Ticker) *PoolSystem {
	return &PoolSystem{pools: pools}
}

// Add registers another pool; call between ticks
func (s *PoolSystem) Add(p Ticker) {
	s.pools = append(s.pools, p)
}

// Pools returns the registered pools
func (s *PoolSystem) Pools() []Ticker {
	return s.pools
}

func (s *PoolSystem) Name() string { return "pool" }

func (s *PoolSystem) Priority() int { return parameter.PriorityPool }

func (s *PoolSystem) Update(time.Duration) {
	for _, p := range s.pools {
		p.Tick()
	}
}
