// Package overlay draws debug annotations onto screenshots: a coordinate
// grid for vision-only planning and tap markers for run inspection.
package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"droid-agent/internal/domain/entity"
)

const (
	minorStep = 50
	majorStep = 100
)

// Line colors are alpha-premultiplied so draw.Over blends them over the
// screenshot instead of replacing it.
var (
	minorColor = color.RGBA{R: 90, A: 90}
	majorColor = color.RGBA{R: 200, A: 200}
	labelColor = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	markColor  = color.RGBA{R: 255, A: 255}
)

// Grid draws the coordinate grid over a screenshot and returns it re-encoded
// as JPEG. Minor lines every 50px, major lines with axis labels every 100px.
func Grid(screenshot []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot for grid: %w", err)
	}

	canvas := toRGBA(src)
	b := canvas.Bounds()

	for x := b.Min.X; x < b.Max.X; x += minorStep {
		c := minorColor
		if x%majorStep == 0 {
			c = majorColor
		}
		vline(canvas, x, c)
	}
	for y := b.Min.Y; y < b.Max.Y; y += minorStep {
		c := minorColor
		if y%majorStep == 0 {
			c = majorColor
		}
		hline(canvas, y, c)
	}

	drawer := &font.Drawer{Dst: canvas, Src: image.NewUniform(labelColor), Face: basicfont.Face7x13}
	for x := majorStep; x < b.Max.X; x += majorStep * 2 {
		label(drawer, x+2, 12, fmt.Sprintf("%d", x))
	}
	for y := majorStep; y < b.Max.Y; y += majorStep * 2 {
		label(drawer, 2, y+12, fmt.Sprintf("%d", y))
	}

	return encode(canvas)
}

// TapMarker draws a crosshair at a tap point, plus the element bounds when
// known, so a run's decisions can be audited frame by frame.
func TapMarker(screenshot []byte, x, y int, bounds *entity.Rect) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot for marker: %w", err)
	}

	canvas := toRGBA(src)
	crosshair(canvas, x, y)
	if bounds != nil {
		rect(canvas, *bounds)
	}

	drawer := &font.Drawer{Dst: canvas, Src: image.NewUniform(labelColor), Face: basicfont.Face7x13}
	label(drawer, x+14, y-6, fmt.Sprintf("(%d,%d)", x, y))

	return encode(canvas)
}

func toRGBA(src image.Image) *image.RGBA {
	canvas := image.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)
	return canvas
}

func vline(img *image.RGBA, x int, c color.Color) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		blend(img, x, y, c)
	}
}

func hline(img *image.RGBA, y int, c color.Color) {
	b := img.Bounds()
	for x := b.Min.X; x < b.Max.X; x++ {
		blend(img, x, y, c)
	}
}

func blend(img *image.RGBA, x, y int, c color.Color) {
	draw.Draw(img, image.Rect(x, y, x+1, y+1), image.NewUniform(c), image.Point{}, draw.Over)
}

func crosshair(img *image.RGBA, x, y int) {
	const arm = 18
	for d := -arm; d <= arm; d++ {
		set(img, x+d, y, markColor)
		set(img, x, y+d, markColor)
	}
	// Small box around the center so the mark survives JPEG compression.
	for dx := -2; dx <= 2; dx++ {
		for dy := -2; dy <= 2; dy++ {
			set(img, x+dx, y+dy, markColor)
		}
	}
}

func rect(img *image.RGBA, r entity.Rect) {
	for x := r.X1; x <= r.X2; x++ {
		set(img, x, r.Y1, markColor)
		set(img, x, r.Y2, markColor)
	}
	for y := r.Y1; y <= r.Y2; y++ {
		set(img, r.X1, y, markColor)
		set(img, r.X2, y, markColor)
	}
}

func set(img *image.RGBA, x, y int, c color.Color) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}

func label(d *font.Drawer, x, y int, text string) {
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	return buf.Bytes(), nil
}
