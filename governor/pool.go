package governor

import (
	"github.com/lixenwraith/perfgov/pool"
)

// NewPool builds a pool from the [pool] section and registers it for idle cleanup
func NewPool[T comparable](g *Governor, name string, newFn func() T, mutate func(*pool.Options[T])) (*pool.Pool[T], error) {
	pc := g.Config.Pool
	opts := pool.DefaultOptions(name, newFn)
	opts.MaxSize = pc.MaxSize
	opts.InitialSize = pc.InitialSize
	opts.AllowForcedReuse = pc.AllowForcedReuse
	opts.CleanupInterval = pc.CleanupInterval.D()
	opts.MaxIdle = pc.MaxIdle.D()
	opts.Clock = g.Clock
	opts.Events = g.Queue
	opts.Registry = g.Registry
	opts.Logger = g.Logger
	if mutate != nil {
		mutate(&opts)
	}

	p, err := pool.New(opts)
	if err != nil {
		return nil, err
	}
	g.Engine.Do(func() { g.PoolSystem.Add(p) })
	return p, nil
}
