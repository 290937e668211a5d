package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"droid-agent/internal/domain/entity"
	"droid-agent/internal/infrastructure/console"
)

func runCmd() *cobra.Command {
	var fresh bool

	cmd := &cobra.Command{
		Use:   "run <goal>",
		Short: "Run the agent toward one goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goal := args[0]

			container, err := buildContainer()
			if err != nil {
				return err
			}
			defer container.Close()

			// Ctrl-C requests a stop; the supervisor honors it between
			// iterations so the device is never left mid-gesture.
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			serial, err := container.ResolveSerial(ctx)
			if err != nil {
				return err
			}

			if fresh {
				if err := container.Reset(ctx, serial); err != nil {
					return fmt.Errorf("fresh start: %w", err)
				}
			}

			sup, err := container.Supervisor(serial)
			if err != nil {
				return err
			}

			report, runErr := sup.Run(ctx, goal)
			if report != nil {
				console.PrintRunReport(os.Stdout, report)
			}
			if runErr != nil {
				return runErr
			}
			if report.Outcome != entity.RunSuccess {
				return fmt.Errorf("goal not reached: %s", report.Outcome)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fresh, "fresh", false, "wipe the target app's data before running")
	return cmd
}
