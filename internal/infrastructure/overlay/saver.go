package overlay

import (
	"fmt"
	"os"
	"path/filepath"

	"droid-agent/internal/application/port/output"
	"droid-agent/internal/domain/entity"
)

// Saver writes annotated screenshots for one run into a directory, one file
// per step. A nil Saver is valid and does nothing, so callers need no guards
// when debug output is off.
type Saver struct {
	dir    string
	logger output.LoggerPort
}

func NewSaver(dir, runID string, logger output.LoggerPort) (*Saver, error) {
	if dir == "" {
		return nil, nil
	}
	full := filepath.Join(dir, runID)
	if err := os.MkdirAll(full, 0o755); err != nil {
		return nil, fmt.Errorf("create overlay dir: %w", err)
	}
	return &Saver{dir: full, logger: logger}, nil
}

// SaveTap renders a tap marker for one step. Failures only log; debug output
// must never fail a run.
func (s *Saver) SaveTap(screenshot []byte, step, x, y int, bounds *entity.Rect) {
	if s == nil {
		return
	}
	annotated, err := TapMarker(screenshot, x, y, bounds)
	if err != nil {
		s.logger.Warn("Tap marker render failed", "step", step, "error", err)
		return
	}
	path := filepath.Join(s.dir, fmt.Sprintf("step_%02d_tap.jpg", step))
	if err := os.WriteFile(path, annotated, 0o644); err != nil {
		s.logger.Warn("Tap marker write failed", "path", path, "error", err)
	}
}
