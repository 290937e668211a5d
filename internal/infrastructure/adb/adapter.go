package adb

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"droid-agent/internal/application/port/output"
)

const hierarchyDumpPath = "/sdcard/window_dump.xml"

var physicalSizeRe = regexp.MustCompile(`Physical size:\s*(\d+)x(\d+)`)

var _ output.DeviceBridge = (*BridgeAdapter)(nil)

// BridgeAdapter exposes a device as the bridge the executor and observer
// consume. Each call is one shell round trip; no state is kept between calls.
type BridgeAdapter struct {
	device *Device
	logger output.LoggerPort
}

func NewBridgeAdapter(device *Device, logger output.LoggerPort) *BridgeAdapter {
	return &BridgeAdapter{device: device, logger: logger.WithField("serial", device.Serial())}
}

func (b *BridgeAdapter) Serial() string { return b.device.Serial() }

func (b *BridgeAdapter) Close() error { return nil }

func (b *BridgeAdapter) Tap(ctx context.Context, x, y int) error {
	_, err := b.device.Shell(ctx, fmt.Sprintf("input tap %d %d", x, y))
	return err
}

func (b *BridgeAdapter) Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	_, err := b.device.Shell(ctx, fmt.Sprintf("input swipe %d %d %d %d %d",
		x1, y1, x2, y2, duration.Milliseconds()))
	return err
}

func (b *BridgeAdapter) InputText(ctx context.Context, text string) error {
	_, err := b.device.Shell(ctx, "input text "+escapeShellText(text))
	return err
}

func (b *BridgeAdapter) KeyEvent(ctx context.Context, keycode int) error {
	_, err := b.device.Shell(ctx, "input keyevent "+strconv.Itoa(keycode))
	return err
}

func (b *BridgeAdapter) Screencap(ctx context.Context) ([]byte, error) {
	data, err := b.device.ExecOut(ctx, "screencap -p")
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("screencap on %s returned no data", b.Serial())
	}
	return data, nil
}

func (b *BridgeAdapter) DumpHierarchy(ctx context.Context) (string, error) {
	// uiautomator refuses stdout on many builds, so dump to a file and
	// read that back.
	out, err := b.device.Shell(ctx, "uiautomator dump "+hierarchyDumpPath)
	if err != nil {
		return "", err
	}
	if strings.Contains(out, "ERROR") {
		return "", fmt.Errorf("uiautomator dump failed: %s", out)
	}
	xml, err := b.device.ExecOut(ctx, "cat "+hierarchyDumpPath)
	if err != nil {
		return "", err
	}
	return string(xml), nil
}

func (b *BridgeAdapter) ScreenSize(ctx context.Context) (int, int, error) {
	out, err := b.device.Shell(ctx, "wm size")
	if err != nil {
		return 0, 0, err
	}
	m := physicalSizeRe.FindStringSubmatch(out)
	if m == nil {
		return 0, 0, fmt.Errorf("cannot parse screen size from %q", out)
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	return w, h, nil
}

func (b *BridgeAdapter) ForceStop(ctx context.Context, pkg string) error {
	b.logger.Debug("Force-stopping package", "package", pkg)
	_, err := b.device.Shell(ctx, "am force-stop "+pkg)
	return err
}

func (b *BridgeAdapter) ClearAppData(ctx context.Context, pkg string) error {
	b.logger.Info("Clearing app data", "package", pkg)
	out, err := b.device.Shell(ctx, "pm clear "+pkg)
	if err != nil {
		return err
	}
	if !strings.Contains(out, "Success") {
		return fmt.Errorf("pm clear %s: %s", pkg, out)
	}
	return nil
}

// escapeShellText prepares text for `input text`. The input binary treats a
// space as an argument separator, so spaces become %s. The string is wrapped
// in double quotes, where only $ ` " \ carry meaning; escaping anything else
// would send the backslash through to the device.
func escapeShellText(text string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range text {
		switch r {
		case ' ':
			b.WriteString("%s")
		case '"', '\\', '$', '`':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
