package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"droid-agent/internal/infrastructure/console"
	"droid-agent/internal/usecase/suite"
)

func suiteCmd() *cobra.Command {
	var allDevices bool

	cmd := &cobra.Command{
		Use:   "suite",
		Short: "Run the built-in case suite",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer()
			if err != nil {
				return err
			}
			defer container.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var serials []string
			if allDevices {
				serials, err = container.ADB.Devices(ctx)
				if err != nil {
					return err
				}
			} else {
				serial, err := container.ResolveSerial(ctx)
				if err != nil {
					return err
				}
				serials = []string{serial}
			}

			results, err := container.SuiteRunner().Run(ctx, serials, suite.DefaultCases())
			if err != nil {
				return err
			}

			console.PrintSuiteResults(os.Stdout, results)

			if _, failed := suite.Summary(results); failed > 0 {
				return fmt.Errorf("%d cases failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allDevices, "all-devices", false, "spread cases over every attached device")
	return cmd
}

func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List devices the adb server sees",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := buildContainer()
			if err != nil {
				return err
			}
			defer container.Close()

			serials, err := container.ADB.Devices(cmd.Context())
			if err != nil {
				return err
			}
			if len(serials) == 0 {
				fmt.Println("no devices attached")
				return nil
			}
			for _, serial := range serials {
				fmt.Println(serial)
			}
			return nil
		},
	}
}
