package output

import (
	"context"

	"droid-agent/internal/domain/entity"
)

// Decision is everything the planner may look at for one step. It never
// includes a device handle; planners are pure with respect to the loop.
type Decision struct {
	Goal        string
	Observation *entity.Observation
	History     []entity.HistoryEntry
	MemoryHints string
}

// Planner maps one decision request to exactly one next action. A planner
// that cannot determine a next step returns terminate(failure); any error is
// treated by the supervisor as fatal, never retried.
type Planner interface {
	Decide(ctx context.Context, d Decision) (entity.Action, error)
}

// ActionExecutor executes exactly one action against the device bridge.
// It never retries internally and never lets a bridge-level failure escape
// as anything but Success=false.
type ActionExecutor interface {
	Execute(ctx context.Context, action entity.Action) entity.ExecutionResult
}

// Verifier gives an out-of-band judgement on whether the goal is reached.
type Verifier interface {
	Verify(ctx context.Context, goal string, obs *entity.Observation, step int) (entity.Verdict, string, error)
}

// MemoryPort is the planner's window into persisted knowledge from past runs.
type MemoryPort interface {
	Hints() string
	RememberElement(name string, x, y int, context string)
	RememberFailure(action, context, reason string)
	RememberSuccess(action, context string)
}
