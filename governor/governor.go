// Package governor is the composition root: it builds every component once
// from configuration and wires them onto a single tick engine
package governor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lixenwraith/perfgov/asset"
	"github.com/lixenwraith/perfgov/budget"
	"github.com/lixenwraith/perfgov/clock"
	"github.com/lixenwraith/perfgov/config"
	"github.com/lixenwraith/perfgov/engine"
	"github.com/lixenwraith/perfgov/event"
	"github.com/lixenwraith/perfgov/lod"
	"github.com/lixenwraith/perfgov/platform"
	"github.com/lixenwraith/perfgov/quality"
	"github.com/lixenwraith/perfgov/sampler"
	"github.com/lixenwraith/perfgov/status"
	"github.com/lixenwraith/perfgov/system"
)

// Deps are the external collaborators; zero values get defaults
type Deps struct {
	Clock    clock.Clock
	Registry *status.Registry
	Logger   *zap.Logger
	// Provider defaults to an in-process MemoryProvider
	Provider asset.Provider
	// Camera defaults to a static camera at the origin
	Camera lod.CameraProvider
	// OnEvict is told about every evicted asset
	OnEvict budget.EvictFunc
}

// Governor holds the wired components
// Fields are read-only after New; mutate component state through Do or from systems
type Governor struct {
	Config   *config.Config
	Platform platform.Info
	Logger   *zap.Logger

	Clock     *clock.Pausable
	Scheduler *clock.Scheduler
	Queue     *event.Queue
	Bus       *event.Bus
	Registry  *status.Registry

	Sampler  *sampler.Sampler
	Quality  *quality.Governor
	LOD      *lod.Calculator
	Budget   *budget.Tracker
	Loader   *asset.Loader
	Provider asset.Provider

	LODSystem  *system.LODSystem
	PoolSystem *system.PoolSystem
	Engine     *engine.Engine
	Loop       *engine.Loop
	TickDone   <-chan struct{}

	closeProvider func() error
}

// New wires every component from cfg and info
func New(cfg *config.Config, info platform.Info, deps Deps) (*Governor, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := status.OrNew(deps.Registry)

	g := &Governor{
		Config:   cfg,
		Platform: info,
		Logger:   logger,
		Clock:    clock.NewPausable(clock.OrReal(deps.Clock)),
		Queue:    event.NewQueue(),
		Bus:      event.NewBus(),
		Registry: reg,
	}
	g.Scheduler = clock.NewScheduler(g.Clock)

	g.Sampler = sampler.New(cfg.Frame.SampleWindow)
	g.Quality = quality.New(QualityConfig(cfg, info), g.Clock, g.Queue, reg, logger)
	g.LOD = lod.New(LODConfig(cfg, info), g.Quality, g.Clock, g.Queue, reg, logger)

	g.Budget = budget.New(BudgetConfig(cfg, info), g.Clock, g.Queue, reg, logger)
	if deps.OnEvict != nil {
		g.Budget.SetEvictor(deps.OnEvict)
	}

	g.Provider = deps.Provider
	if g.Provider == nil {
		pcfg := asset.DefaultMemoryProviderConfig()
		pcfg.Latency = cfg.Asset.Latency.D()
		mp, err := asset.NewMemoryProvider(context.Background(), g.Scheduler, pcfg)
		if err != nil {
			return nil, fmt.Errorf("asset provider: %w", err)
		}
		g.Provider = mp
		g.closeProvider = mp.Close
	}
	g.Loader = asset.NewLoader(asset.Config{Timeout: cfg.Asset.Timeout.D()}, g.Provider, g.Budget, g.Clock, g.Queue, reg, logger)

	g.LODSystem = system.NewLODSystem(g.LOD, deps.Camera)
	g.PoolSystem = system.NewPoolSystem()

	g.Engine = engine.New(g.Scheduler, g.Queue, g.Bus, reg, logger)
	g.Engine.AddSystem(system.NewFrameSystem(g.Sampler, reg))
	g.Engine.AddSystem(system.NewAssetSystem(g.Loader))
	g.Engine.AddSystem(system.NewQualitySystem(g.Quality, g.Sampler, g.Clock, cfg.Quality.EvaluationInterval.D()))
	g.Engine.AddSystem(g.LODSystem)
	g.Engine.AddSystem(system.NewMemorySystem(g.Budget))
	g.Engine.AddSystem(g.PoolSystem)

	g.Loop, g.TickDone = engine.NewLoop(g.Engine, g.Clock, cfg.Frame.TickInterval.D(), logger)

	logger.Info("governor ready",
		zap.Stringer("device_class", info.Class),
		zap.Stringer("initial_tier", g.Quality.Tier()),
		zap.Int64("memory_budget", g.Budget.TotalBudget()),
		zap.Float64s("lod_bands", g.LOD.Bands()))
	return g, nil
}

// Tick runs one engine cycle with frame delta dt, for callers driving their own loop
func (g *Governor) Tick(dt time.Duration) {
	g.Engine.Tick(dt)
}

// Do runs fn between ticks
func (g *Governor) Do(fn func()) {
	g.Engine.Do(fn)
}

// Subscribe registers fn for t on the notification bus
func (g *Governor) Subscribe(t event.Type, fn event.Handler) (*event.Subscription, error) {
	return g.Bus.Subscribe(t, fn)
}

// Start runs the fixed-interval loop
func (g *Governor) Start() {
	g.Loop.Start()
}

// Close stops the loop and releases the default provider
func (g *Governor) Close() error {
	g.Loop.Stop()
	if g.closeProvider != nil {
		return g.closeProvider()
	}
	return nil
}
