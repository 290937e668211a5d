package observer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

type fakeBridge struct {
	screenshot []byte
	capErr     error
	xml        string
	dumpErr    error
	width      int
	height     int
	sizeErr    error
	sizeCalls  int
}

func (f *fakeBridge) Tap(context.Context, int, int) error                          { return nil }
func (f *fakeBridge) Swipe(context.Context, int, int, int, int, time.Duration) error { return nil }
func (f *fakeBridge) InputText(context.Context, string) error                      { return nil }
func (f *fakeBridge) KeyEvent(context.Context, int) error                          { return nil }
func (f *fakeBridge) ForceStop(context.Context, string) error                      { return nil }
func (f *fakeBridge) ClearAppData(context.Context, string) error                   { return nil }
func (f *fakeBridge) Serial() string                                               { return "emulator-5554" }
func (f *fakeBridge) Close() error                                                 { return nil }

func (f *fakeBridge) Screencap(context.Context) ([]byte, error) {
	return f.screenshot, f.capErr
}

func (f *fakeBridge) DumpHierarchy(context.Context) (string, error) {
	return f.xml, f.dumpErr
}

func (f *fakeBridge) ScreenSize(context.Context) (int, int, error) {
	f.sizeCalls++
	return f.width, f.height, f.sizeErr
}

func pngScreenshot(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

const tinyDump = `<?xml version='1.0'?><hierarchy><node text="OK" class="android.widget.Button" clickable="true" bounds="[0,0][100,50]"/></hierarchy>`

func TestCapture_FullObservation(t *testing.T) {
	bridge := &fakeBridge{
		screenshot: pngScreenshot(t, 1080, 2400),
		xml:        tinyDump,
		width:      1080, height: 2400,
	}
	src := New(bridge, nopLogger{})

	obs, err := src.Capture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1080, obs.ScreenWidth)
	assert.Equal(t, 2400, obs.ScreenHeight)
	assert.Len(t, obs.Elements, 1)
	assert.Equal(t, "OK", obs.Elements[0].Text)
	assert.NotZero(t, obs.Digest)
	assert.False(t, obs.CapturedAt.IsZero())
}

func TestCapture_DownscalesAndReencodes(t *testing.T) {
	bridge := &fakeBridge{screenshot: pngScreenshot(t, 1080, 2400), width: 1080, height: 2400}
	src := New(bridge, nopLogger{})

	obs, err := src.Capture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "jpeg", obs.Screenshot.Format)
	assert.LessOrEqual(t, obs.Screenshot.Width, 1024)
	assert.Equal(t, 1024, obs.Screenshot.Height)

	img, err := jpeg.Decode(bytes.NewReader(obs.Screenshot.Data))
	require.NoError(t, err)
	assert.Equal(t, 1024, img.Bounds().Dy())
}

func TestCapture_SmallScreenshotKeptAsIs(t *testing.T) {
	bridge := &fakeBridge{screenshot: pngScreenshot(t, 800, 600), width: 800, height: 600}
	src := New(bridge, nopLogger{})

	obs, err := src.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 800, obs.Screenshot.Width)
	assert.Equal(t, 600, obs.Screenshot.Height)
}

func TestCapture_ScreencapErrorWrapsErrCapture(t *testing.T) {
	bridge := &fakeBridge{capErr: errors.New("device offline")}
	src := New(bridge, nopLogger{})

	_, err := src.Capture(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrCapture)
}

func TestCapture_UndecodableScreenshotWrapsErrCapture(t *testing.T) {
	bridge := &fakeBridge{screenshot: []byte("not an image")}
	src := New(bridge, nopLogger{})

	_, err := src.Capture(context.Background())
	assert.ErrorIs(t, err, entity.ErrCapture)
}

func TestCapture_HierarchyFailureIsTolerated(t *testing.T) {
	bridge := &fakeBridge{
		screenshot: pngScreenshot(t, 400, 400),
		dumpErr:    errors.New("uiautomator busy"),
		width:      400, height: 400,
	}
	src := New(bridge, nopLogger{})

	obs, err := src.Capture(context.Background())
	require.NoError(t, err)
	assert.Empty(t, obs.Elements)
	assert.NotZero(t, obs.Digest, "pixel digest must stand in without a hierarchy")
}

func TestCapture_ScreenSizeFallsBackToImage(t *testing.T) {
	bridge := &fakeBridge{
		screenshot: pngScreenshot(t, 720, 1280),
		sizeErr:    errors.New("wm unavailable"),
	}
	src := New(bridge, nopLogger{})

	obs, err := src.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 720, obs.ScreenWidth)
	assert.Equal(t, 1280, obs.ScreenHeight)
}

func TestCapture_ScreenSizeQueriedOnce(t *testing.T) {
	bridge := &fakeBridge{screenshot: pngScreenshot(t, 400, 400), width: 400, height: 400}
	src := New(bridge, nopLogger{})

	for i := 0; i < 3; i++ {
		_, err := src.Capture(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, bridge.sizeCalls)
}

func TestDigest_IgnoresVolatileAttributes(t *testing.T) {
	a := `<hierarchy><node text="OK" focused="true" bounds="[0,0][10,10]"/></hierarchy>`
	b := `<hierarchy><node text="OK" focused="false" bounds="[0,0][10,10]"/></hierarchy>`
	c := `<hierarchy><node text="Cancel" focused="false" bounds="[0,0][10,10]"/></hierarchy>`

	assert.Equal(t, digest(a, nil), digest(b, nil))
	assert.NotEqual(t, digest(a, nil), digest(c, nil))
}

func TestDigestEqual(t *testing.T) {
	a := &entity.Observation{Digest: 42}
	b := &entity.Observation{Digest: 42}
	c := &entity.Observation{Digest: 7}

	assert.True(t, DigestEqual(a, b))
	assert.False(t, DigestEqual(a, c))
	assert.False(t, DigestEqual(nil, a))
}
