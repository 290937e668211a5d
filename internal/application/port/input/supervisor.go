package input

import (
	"context"

	"droid-agent/internal/domain/entity"
)

// RunSupervisor drives one goal to completion within configured bounds.
// The returned report is the only view of the run the caller ever gets.
type RunSupervisor interface {
	Run(ctx context.Context, goal string) (*entity.RunReport, error)
}
