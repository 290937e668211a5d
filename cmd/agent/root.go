package main

import (
	"github.com/spf13/cobra"

	"droid-agent/internal/di"
	"droid-agent/internal/infrastructure/config"
	"droid-agent/internal/infrastructure/env"
)

var (
	flagConfig string
	flagSerial string
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Vision-driven Android UI automation agent",
		Long: `agent drives an Android device toward a natural-language goal.
Each iteration it captures the screen, asks a vision model for the single
next action and executes it over adb, until the goal is reached or a
safety limit trips.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ./agent.yaml)")
	cmd.PersistentFlags().StringVar(&flagSerial, "device", "", "device serial (overrides config)")

	cmd.AddCommand(runCmd())
	cmd.AddCommand(suiteCmd())
	cmd.AddCommand(devicesCmd())
	return cmd
}

// buildContainer loads dotenv and config, applies flag overrides and wires
// the container. Shared by every subcommand.
func buildContainer() (*di.Container, error) {
	env.Load()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagSerial != "" {
		cfg.ADB.Serial = flagSerial
	}

	return di.NewContainer(cfg)
}
