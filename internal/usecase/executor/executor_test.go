package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"droid-agent/internal/application/port/output"
	"droid-agent/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)                      {}
func (nopLogger) Info(string, ...any)                       {}
func (nopLogger) Warn(string, ...any)                       {}
func (nopLogger) Error(string, ...any)                      {}
func (l nopLogger) WithField(string, any) output.LoggerPort { return l }
func (nopLogger) Close() error                              { return nil }

// recordingBridge records the primitive each action was mapped to.
type recordingBridge struct {
	calls []string
	text  string
	err   error
}

func (b *recordingBridge) Tap(ctx context.Context, x, y int) error {
	b.calls = append(b.calls, "tap")
	return b.err
}

func (b *recordingBridge) Swipe(ctx context.Context, x1, y1, x2, y2 int, d time.Duration) error {
	b.calls = append(b.calls, "swipe")
	return b.err
}

func (b *recordingBridge) InputText(ctx context.Context, text string) error {
	b.calls = append(b.calls, "input_text")
	b.text = text
	return b.err
}

func (b *recordingBridge) KeyEvent(ctx context.Context, keycode int) error {
	b.calls = append(b.calls, "keyevent")
	return b.err
}

func (b *recordingBridge) Screencap(ctx context.Context) ([]byte, error)     { return nil, nil }
func (b *recordingBridge) DumpHierarchy(ctx context.Context) (string, error) { return "", nil }
func (b *recordingBridge) ScreenSize(ctx context.Context) (int, int, error)  { return 0, 0, nil }
func (b *recordingBridge) ForceStop(ctx context.Context, pkg string) error   { return nil }
func (b *recordingBridge) ClearAppData(ctx context.Context, pkg string) error {
	return nil
}
func (b *recordingBridge) Serial() string { return "emulator-5554" }
func (b *recordingBridge) Close() error   { return nil }

func TestExecute_MapsActionsToPrimitives(t *testing.T) {
	tests := []struct {
		name   string
		action entity.Action
		want   string
	}{
		{"tap", entity.Action{Kind: entity.ActionTap, X: 10, Y: 20}, "tap"},
		{"swipe", entity.Action{Kind: entity.ActionSwipe, X: 1, Y: 2, X2: 3, Y2: 4, Duration: 300 * time.Millisecond}, "swipe"},
		{"type", entity.Action{Kind: entity.ActionTypeText, Text: "hello world"}, "input_text"},
		{"key", entity.Action{Kind: entity.ActionKey, KeyCode: 66}, "keyevent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bridge := &recordingBridge{}
			e := New(bridge, nopLogger{})

			result := e.Execute(context.Background(), tt.action)
			if !result.Success {
				t.Fatalf("expected success, got error %q", result.Error)
			}
			if len(bridge.calls) != 1 || bridge.calls[0] != tt.want {
				t.Errorf("expected one %s call, got %v", tt.want, bridge.calls)
			}
		})
	}
}

func TestExecute_TextPassedVerbatim(t *testing.T) {
	bridge := &recordingBridge{}
	e := New(bridge, nopLogger{})

	text := `Meeting Notes & "quotes"; 100% done`
	result := e.Execute(context.Background(), entity.Action{Kind: entity.ActionTypeText, Text: text})
	if !result.Success {
		t.Fatalf("unexpected failure: %s", result.Error)
	}
	if bridge.text != text {
		t.Errorf("text altered before the bridge: %q", bridge.text)
	}
}

func TestExecute_BridgeErrorBecomesFailureResult(t *testing.T) {
	bridge := &recordingBridge{err: errors.New("device offline")}
	e := New(bridge, nopLogger{})

	result := e.Execute(context.Background(), entity.Action{Kind: entity.ActionTap, X: 1, Y: 1})
	if result.Success {
		t.Fatal("expected failure result")
	}
	if result.Error != "device offline" {
		t.Errorf("expected descriptive error, got %q", result.Error)
	}
	// One call only: the executor never retries internally.
	if len(bridge.calls) != 1 {
		t.Errorf("expected exactly one bridge call, got %d", len(bridge.calls))
	}
}

func TestExecute_WaitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	e := New(&recordingBridge{}, nopLogger{})
	start := time.Now()
	result := e.Execute(ctx, entity.Action{Kind: entity.ActionWait, Duration: 5 * time.Second})

	if result.Success {
		t.Fatal("expected interrupted wait to fail")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("wait did not honor context cancellation, took %s", elapsed)
	}
}

func TestExecute_TerminateIsNotExecutable(t *testing.T) {
	bridge := &recordingBridge{}
	e := New(bridge, nopLogger{})

	result := e.Execute(context.Background(), entity.Action{Kind: entity.ActionTerminate, Outcome: entity.RunSuccess})
	if result.Success {
		t.Fatal("terminate must not execute")
	}
	if len(bridge.calls) != 0 {
		t.Errorf("terminate reached the device bridge: %v", bridge.calls)
	}
}
