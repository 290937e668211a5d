package overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

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

func blankScreenshot(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 30, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func redAt(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return r > 0x8000 && g < 0x6000 && b < 0x6000
}

func TestGrid_DrawsLinesAtStep(t *testing.T) {
	out, err := Grid(blankScreenshot(t, 400, 600))
	require.NoError(t, err)

	img := decodeJPEG(t, out)
	assert.Equal(t, 400, img.Bounds().Dx())

	// Major lines land on multiples of 100.
	assert.True(t, redAt(img, 100, 333), "vertical major line at x=100")
	assert.True(t, redAt(img, 77, 200), "horizontal major line at y=200")
	// Between lines the background stays dark.
	assert.False(t, redAt(img, 77, 333), "no line expected at (77,333)")
}

func TestGrid_BadInput(t *testing.T) {
	_, err := Grid([]byte("not an image"))
	require.Error(t, err)
}

func TestTapMarker_DrawsCrosshairAndBounds(t *testing.T) {
	bounds := &entity.Rect{X1: 100, Y1: 150, X2: 300, Y2: 250}
	out, err := TapMarker(blankScreenshot(t, 400, 400), 200, 200, bounds)
	require.NoError(t, err)

	img := decodeJPEG(t, out)
	assert.True(t, redAt(img, 200, 200), "crosshair center")
	assert.True(t, redAt(img, 200, 150), "top edge of bounds")
	assert.True(t, redAt(img, 100, 200), "left edge of bounds")
}

func TestTapMarker_OffscreenPointIsClipped(t *testing.T) {
	// A tap outside the image must not panic, just clip.
	_, err := TapMarker(blankScreenshot(t, 100, 100), 500, 500, nil)
	require.NoError(t, err)
}

func TestSaver_WritesPerStepFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSaver(dir, "run-1", nopLogger{})
	require.NoError(t, err)
	require.NotNil(t, s)

	s.SaveTap(blankScreenshot(t, 200, 200), 3, 50, 50, nil)

	path := filepath.Join(dir, "run-1", "step_03_tap.jpg")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSaver_NilIsSafe(t *testing.T) {
	s, err := NewSaver("", "run-1", nopLogger{})
	require.NoError(t, err)
	require.Nil(t, s)

	// Must not panic.
	s.SaveTap([]byte("ignored"), 1, 0, 0, nil)
}
