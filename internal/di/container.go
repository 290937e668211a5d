// Package di wires the agent together: device bridge, observer, planner,
// executor, verifier and supervisor, all behind their ports.
package di

import (
	"context"
	"fmt"
	"time"

	"droid-agent/internal/application/port/input"
	"droid-agent/internal/application/port/output"
	"droid-agent/internal/application/service"
	"droid-agent/internal/domain/entity"
	"droid-agent/internal/infrastructure/adb"
	"droid-agent/internal/infrastructure/config"
	"droid-agent/internal/infrastructure/env"
	"droid-agent/internal/infrastructure/llm/openrouter"
	"droid-agent/internal/infrastructure/logger"
	"droid-agent/internal/infrastructure/memory"
	"droid-agent/internal/infrastructure/observer"
	"droid-agent/internal/infrastructure/overlay"
	"droid-agent/internal/usecase/executor"
	"droid-agent/internal/usecase/planner"
	"droid-agent/internal/usecase/suite"
	"droid-agent/internal/usecase/supervisor"
	"droid-agent/internal/usecase/verifier"
)

type Container struct {
	Config *config.Config
	Logger output.LoggerPort
	ADB    *adb.Client
	LLM    output.LLMPort
	Memory output.MemoryPort
}

func NewContainer(cfg *config.Config) (*Container, error) {
	log := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		Console:    cfg.Log.Console,
		MaxSizeMB:  20,
		MaxBackups: 5,
		MaxAgeDays: 14,
	})

	apiKey, err := env.MustGet("OPENROUTER_API_KEY")
	if err != nil {
		log.Close()
		return nil, err
	}

	llmCfg := openrouter.DefaultConfig(apiKey, cfg.LLM.Model)
	llmCfg.BaseURL = cfg.LLM.BaseURL
	llmCfg.RequestsPerMinute = cfg.LLM.RequestsPerMinute
	llmCfg.Logger = log
	llm := openrouter.New(llmCfg)

	var mem output.MemoryPort
	if cfg.Memory.Path != "" {
		store, err := memory.Open(cfg.Memory.Path, log)
		if err != nil {
			log.Close()
			return nil, fmt.Errorf("open memory: %w", err)
		}
		mem = store
	}

	return &Container{
		Config: cfg,
		Logger: log,
		ADB:    adb.NewClient(cfg.ADB.Addr),
		LLM:    llm,
		Memory: mem,
	}, nil
}

// ResolveSerial picks the device to drive: the configured serial when set,
// otherwise the single attached device.
func (c *Container) ResolveSerial(ctx context.Context) (string, error) {
	if c.Config.ADB.Serial != "" {
		return c.Config.ADB.Serial, nil
	}
	serials, err := c.ADB.Devices(ctx)
	if err != nil {
		return "", err
	}
	switch len(serials) {
	case 0:
		return "", fmt.Errorf("no devices attached to adb at %s", c.ADB.Addr())
	case 1:
		return serials[0], nil
	default:
		return "", fmt.Errorf("%d devices attached, set adb.serial to choose one", len(serials))
	}
}

// Supervisor builds a full run supervisor bound to one device serial.
func (c *Container) Supervisor(serial string) (input.RunSupervisor, error) {
	bridge := adb.NewBridgeAdapter(c.ADB.Device(serial), c.Logger)
	source := observer.New(bridge, c.Logger)

	plannerOpts := []planner.Option{planner.WithGridOverlay(overlay.Grid)}
	if c.Memory != nil {
		plannerOpts = append(plannerOpts, planner.WithMemory(c.Memory))
	}
	if c.Config.Overlay.Dir != "" {
		saver, err := overlay.NewSaver(c.Config.Overlay.Dir,
			fmt.Sprintf("%s_%s", serial, time.Now().Format("20060102_150405")), c.Logger)
		if err != nil {
			return nil, err
		}
		plannerOpts = append(plannerOpts, planner.WithTrace(tapTrace(saver)))
	}
	plan := planner.New(c.LLM, service.DefaultCatalog(), c.Logger, plannerOpts...)

	exec := executor.New(bridge, c.Logger)
	verify := verifier.New(c.LLM, c.Logger)

	runCfg := supervisor.Config{
		StepLimit:           c.Config.Run.StepLimit,
		FailureThreshold:    c.Config.Run.FailureThreshold,
		NoProgressWindow:    c.Config.Run.NoProgressWindow,
		CaptureRetries:      c.Config.Run.CaptureRetries,
		CaptureTimeout:      c.Config.Run.CaptureTimeout,
		ActionTimeout:       c.Config.Run.ActionTimeout,
		PlannerTimeout:      c.Config.Run.PlannerTimeout,
		VerifyFromStep:      c.Config.Run.VerifyFromStep,
		VerifyFailAfterStep: c.Config.Run.VerifyFailAfterStep,
	}

	return supervisor.New(source, plan, exec, c.Logger, runCfg,
		supervisor.WithVerifier(verify),
		supervisor.WithComparer(observer.DigestEqual),
	), nil
}

// Reset wipes the target app's data on one device, the fresh-start used by
// suite cases.
func (c *Container) Reset(ctx context.Context, serial string) error {
	bridge := adb.NewBridgeAdapter(c.ADB.Device(serial), c.Logger)
	if err := bridge.ForceStop(ctx, c.Config.App.Package); err != nil {
		return err
	}
	return bridge.ClearAppData(ctx, c.Config.App.Package)
}

// SuiteRunner builds the case runner on top of Supervisor and Reset.
func (c *Container) SuiteRunner() *suite.Runner {
	return suite.NewRunner(c.Supervisor, c.Reset, c.Logger)
}

// tapTrace renders a tap-marker screenshot for every decided tap, with the
// bounds of the element under the tap point when the hierarchy has one.
func tapTrace(saver *overlay.Saver) func(obs *entity.Observation, action entity.Action, step int) {
	return func(obs *entity.Observation, action entity.Action, step int) {
		shot := obs.Screenshot
		if action.Kind != entity.ActionTap || shot == nil || obs.ScreenWidth == 0 || obs.ScreenHeight == 0 {
			return
		}
		// The stored screenshot is downscaled; map screen coordinates into it.
		sx := func(x int) int { return x * shot.Width / obs.ScreenWidth }
		sy := func(y int) int { return y * shot.Height / obs.ScreenHeight }

		var bounds *entity.Rect
		for _, el := range obs.Elements {
			b := el.Bounds
			if action.X >= b.X1 && action.X <= b.X2 && action.Y >= b.Y1 && action.Y <= b.Y2 {
				bounds = &entity.Rect{X1: sx(b.X1), Y1: sy(b.Y1), X2: sx(b.X2), Y2: sy(b.Y2)}
				break
			}
		}
		saver.SaveTap(shot.Data, step, sx(action.X), sy(action.Y), bounds)
	}
}

func (c *Container) Close() {
	if c.Logger != nil {
		_ = c.Logger.Close()
	}
}
