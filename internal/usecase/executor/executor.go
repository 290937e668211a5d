// Package executor translates one abstract action into device-bridge calls.
// Retry policy lives in the supervisor; this layer reports outcomes and
// nothing else.
package executor

import (
	"context"
	"fmt"
	"time"

	"droid-agent/internal/application/port/output"
	"droid-agent/internal/domain/entity"
)

var _ output.ActionExecutor = (*DeviceExecutor)(nil)

type DeviceExecutor struct {
	bridge output.DeviceBridge
	logger output.LoggerPort
}

func New(bridge output.DeviceBridge, logger output.LoggerPort) *DeviceExecutor {
	return &DeviceExecutor{bridge: bridge, logger: logger}
}

// Execute performs exactly one action. Any bridge-level error (timeout,
// disconnect, bad coordinate) becomes Success=false with a descriptive
// message; nothing crashes past this boundary.
func (e *DeviceExecutor) Execute(ctx context.Context, action entity.Action) entity.ExecutionResult {
	start := time.Now()
	err := e.perform(ctx, action)

	result := entity.ExecutionResult{
		Action:  action,
		Success: err == nil,
		Latency: time.Since(start),
	}
	if err != nil {
		result.Error = err.Error()
		e.logger.Warn("Action failed", "action", action.String(), "error", err)
	} else {
		e.logger.Debug("Action executed", "action", action.String(), "latency_ms", result.Latency.Milliseconds())
	}
	return result
}

func (e *DeviceExecutor) perform(ctx context.Context, action entity.Action) error {
	switch action.Kind {
	case entity.ActionTap:
		return e.bridge.Tap(ctx, action.X, action.Y)
	case entity.ActionSwipe:
		return e.bridge.Swipe(ctx, action.X, action.Y, action.X2, action.Y2, action.Duration)
	case entity.ActionTypeText:
		return e.bridge.InputText(ctx, action.Text)
	case entity.ActionKey:
		return e.bridge.KeyEvent(ctx, action.KeyCode)
	case entity.ActionWait:
		return e.wait(ctx, action.Duration)
	case entity.ActionTerminate:
		// The supervisor finishes terminate actions itself; reaching the
		// executor with one is a wiring defect, not a device failure.
		return fmt.Errorf("terminate action is not executable")
	default:
		return fmt.Errorf("unsupported action kind %q", action.Kind)
	}
}

func (e *DeviceExecutor) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	}
}
