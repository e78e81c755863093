package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/lixenwraith/perfgov/diag"
	"github.com/lixenwraith/perfgov/governor"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the governor on its tick loop with a live terminal dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		// Console output would tear the dashboard
		if !flags.Debug && cfg.Log.File == "" {
			logger = zap.NewNop()
		}
		defer logger.Sync()

		var g *governor.Governor
		app := fx.New(
			fx.Supply(cfg, logger),
			fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
				return &fxevent.ZapLogger{Logger: l.Named("fx")}
			}),
			governor.Module(),
			diag.Module(),
			fx.Populate(&g),
		)
		if err := app.Err(); err != nil {
			return err
		}

		startCtx, cancel := context.WithTimeout(cmd.Context(), fx.DefaultTimeout)
		defer cancel()
		if err := app.Start(startCtx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
			defer cancel()
			if err := app.Stop(stopCtx); err != nil {
				logger.Error("shutdown", zap.Error(err))
			}
		}()

		return runDashboard(g)
	},
}
