// Command governor-sandbox exercises the performance governor interactively
// or against scripted frame-time scenarios
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lixenwraith/perfgov/config"
)

type globalFlags struct {
	ConfigPath  string
	Debug       bool
	DeviceClass string
}

var flags globalFlags

var rootCmd = &cobra.Command{
	Use:           "governor-sandbox",
	Short:         "Adaptive performance governor sandbox",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "TOML configuration file")
	rootCmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "write debug logs to "+logDir)
	rootCmd.PersistentFlags().StringVar(&flags.DeviceClass, "device-class", "", "override device class: low, mid, high")

	rootCmd.AddCommand(runCmd, simulateCmd, configCmd)
}

// loadConfig resolves configuration and the logger shared by every subcommand
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, adjustments, err := config.Load(flags.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if flags.DeviceClass != "" {
		cfg.Platform.DeviceClass = flags.DeviceClass
		adjustments = append(adjustments, cfg.Sanitize()...)
	}

	logger, err := setupLogging(cfg, flags.Debug)
	if err != nil {
		return nil, nil, err
	}
	for _, a := range adjustments {
		logger.Warn("config adjusted", zap.String("detail", a))
	}
	return cfg, logger, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := config.Load(flags.ConfigPath)
		if err != nil {
			return err
		}
		out, err := cfg.Encode()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}
