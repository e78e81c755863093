package diag

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lixenwraith/perfgov/config"
	"github.com/lixenwraith/perfgov/governor"
)

// Module starts the debug server alongside the governor when [debug] is enabled
func Module() fx.Option {
	return fx.Module("diag", fx.Invoke(register))
}

func register(lc fx.Lifecycle, cfg *config.Config, g *governor.Governor, logger *zap.Logger) {
	if !cfg.Debug.Enabled {
		return
	}
	s := New(cfg.Debug.Addr, g, logger)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return s.Start() },
		OnStop:  s.Stop,
	})
}
