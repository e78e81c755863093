package governor

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lixenwraith/perfgov/asset"
	"github.com/lixenwraith/perfgov/config"
	"github.com/lixenwraith/perfgov/status"
)

// ModuleInput are the dependencies the module expects from the application
type ModuleInput struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Registry *status.Registry
	Provider asset.Provider `optional:"true"`
}

// ProvideGovernor detects the platform and wires the governor
func ProvideGovernor(in ModuleInput) (*Governor, error) {
	info := DetectPlatform(in.Config)
	return New(in.Config, info, Deps{
		Registry: in.Registry,
		Logger:   in.Logger,
		Provider: in.Provider,
	})
}

// Module provides the status registry and the governor, and runs the tick
// loop for the lifetime of the application
// Config and Logger must be supplied by the caller
func Module() fx.Option {
	return fx.Module("governor",
		fx.Provide(
			status.NewRegistry,
			ProvideGovernor,
		),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, g *Governor) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			g.Start()
			g.Logger.Info("tick loop started", zap.Duration("interval", g.Config.Frame.TickInterval.D()))
			return nil
		},
		OnStop: func(context.Context) error {
			g.Logger.Info("tick loop stopping", zap.Int64("frames", g.Engine.Frame()))
			return g.Close()
		},
	})
}
