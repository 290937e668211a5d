// Package observer captures device snapshots: screenshot, UI hierarchy and
// a digest the supervisor compares for progress.
package observer

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/jpeg"
	_ "image/png"
	"regexp"
	"time"

	"github.com/disintegration/imaging"

	"droid-agent/internal/application/port/output"
	"droid-agent/internal/domain/entity"
	"droid-agent/internal/infrastructure/uiauto"
)

const (
	// maxImageDimension bounds screenshots sent to the model; larger sides
	// are downscaled to keep token cost flat.
	maxImageDimension = 1024
	jpegQuality       = 75
)

// volatileAttrRe strips hierarchy attributes that flicker between dumps of
// the same screen (selection, focus) so the digest stays stable.
var volatileAttrRe = regexp.MustCompile(`\s(?:focused|selected)="(?:true|false)"`)

var _ output.ObservationSource = (*Source)(nil)

// Source builds observations from a device bridge. A missing hierarchy is
// tolerated, the planner falls back to vision; a missing screenshot is not.
type Source struct {
	bridge output.DeviceBridge
	logger output.LoggerPort

	screenW, screenH int
}

func New(bridge output.DeviceBridge, logger output.LoggerPort) *Source {
	return &Source{bridge: bridge, logger: logger}
}

func (s *Source) Capture(ctx context.Context) (*entity.Observation, error) {
	raw, err := s.bridge.Screencap(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrCapture, err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: decode screenshot: %v", entity.ErrCapture, err)
	}
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()

	shot, err := encodeForModel(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrCapture, err)
	}

	xml, elements := s.hierarchy(ctx)

	if err := s.ensureScreenSize(ctx, width, height); err != nil {
		return nil, err
	}

	return &entity.Observation{
		Screenshot:   shot,
		Elements:     elements,
		HierarchyXML: xml,
		ScreenWidth:  s.screenW,
		ScreenHeight: s.screenH,
		CapturedAt:   time.Now(),
		Digest:       digest(xml, raw),
	}, nil
}

// hierarchy dumps and parses the UI tree. Any failure is downgraded to an
// empty element list; the screenshot alone is still a usable observation.
func (s *Source) hierarchy(ctx context.Context) (string, []entity.UIElement) {
	xml, err := s.bridge.DumpHierarchy(ctx)
	if err != nil {
		s.logger.Warn("Hierarchy dump failed, observing from pixels only", "error", err)
		return "", nil
	}
	elements, err := uiauto.Parse(xml)
	if err != nil {
		s.logger.Warn("Hierarchy dump unparseable, observing from pixels only", "error", err)
		return "", nil
	}
	return xml, elements
}

// ensureScreenSize resolves the physical screen size once and caches it.
// When `wm size` fails the decoded screenshot dimensions stand in.
func (s *Source) ensureScreenSize(ctx context.Context, imgW, imgH int) error {
	if s.screenW > 0 {
		return nil
	}
	w, h, err := s.bridge.ScreenSize(ctx)
	if err != nil || w <= 0 || h <= 0 {
		s.logger.Warn("Screen size query failed, using screenshot dimensions", "error", err)
		w, h = imgW, imgH
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: no usable screen size", entity.ErrCapture)
	}
	s.screenW, s.screenH = w, h
	return nil
}

// encodeForModel downscales and re-encodes the screenshot as JPEG.
func encodeForModel(img image.Image) (*entity.Screenshot, error) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w > maxImageDimension || h > maxImageDimension {
		if w >= h {
			img = imaging.Resize(img, maxImageDimension, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, maxImageDimension, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}
	return &entity.Screenshot{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

// digest fingerprints an observation. The hierarchy dominates when present
// because pixels shift with animations; pixel bytes are the fallback.
func digest(xml string, screenshot []byte) uint64 {
	h := fnv.New64a()
	if xml != "" {
		h.Write([]byte(volatileAttrRe.ReplaceAllString(xml, "")))
	} else {
		h.Write(screenshot)
	}
	return h.Sum64()
}

// DigestEqual is the default progress comparer.
func DigestEqual(a, b *entity.Observation) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Digest == b.Digest
}
