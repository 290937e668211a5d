package output

import (
	"context"
	"time"
)

// DeviceBridge is the raw device transport. Its operations are thin
// wrappers over bridge primitives; everything that makes them safe to call
// (sequencing, retries, timeouts) lives above it in the supervisor loop.
type DeviceBridge interface {
	Tap(ctx context.Context, x, y int) error
	Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error
	InputText(ctx context.Context, text string) error
	KeyEvent(ctx context.Context, keycode int) error

	Screencap(ctx context.Context) ([]byte, error)
	DumpHierarchy(ctx context.Context) (string, error)
	ScreenSize(ctx context.Context) (width, height int, err error)

	ForceStop(ctx context.Context, pkg string) error
	ClearAppData(ctx context.Context, pkg string) error

	Serial() string
	Close() error
}
