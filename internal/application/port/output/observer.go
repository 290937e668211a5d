package output

import (
	"context"

	"droid-agent/internal/domain/entity"
)

// ObservationSource produces a fresh device-state snapshot on demand.
// Failures wrap entity.ErrCapture.
type ObservationSource interface {
	Capture(ctx context.Context) (*entity.Observation, error)
}

// ObservationComparer reports whether two observations show the same screen.
// The supervisor uses it for no-progress detection; callers may supply their
// own similarity notion.
type ObservationComparer func(a, b *entity.Observation) bool
