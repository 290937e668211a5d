package entity

import (
	"time"

	"github.com/google/uuid"
)

type RunOutcome string

const (
	RunSuccess           RunOutcome = "success"
	RunFailure           RunOutcome = "failure"
	RunStepLimitExceeded RunOutcome = "step_limit_exceeded"
)

type FailureReason string

const (
	FailureRepeatedExecution FailureReason = "repeated_execution_failure"
	FailureNoProgress        FailureReason = "no_progress"
	FailureCapture           FailureReason = "capture_failed"
	FailurePlanner           FailureReason = "planner_error"
	FailureGoal              FailureReason = "goal_failed"
	FailureCanceled          FailureReason = "canceled"
)

// ExecutionResult is the executor's report on a single action.
type ExecutionResult struct {
	Action  Action
	Success bool
	Error   string
	Latency time.Duration
}

type HistoryEntry struct {
	Step               int
	ObservationSummary string
	Action             Action
	Result             ExecutionResult
}

// RunState is the supervisor's mutable state for one run. It is created at
// run start, owned exclusively by the supervisor, and never shared between
// runs.
type RunState struct {
	RunID               string
	Goal                string
	Step                int
	StepLimit           int
	ConsecutiveFailures int
	History             []HistoryEntry
	StartedAt           time.Time
}

func NewRunState(goal string, stepLimit int) *RunState {
	return &RunState{
		RunID:     uuid.NewString(),
		Goal:      goal,
		StepLimit: stepLimit,
		StartedAt: time.Now(),
	}
}

// Append records one completed iteration. History is append-only.
func (s *RunState) Append(entry HistoryEntry) {
	s.History = append(s.History, entry)
}

// RunReport is the single structured result exposed to the caller once the
// run has terminated. No partial state is exposed mid-run.
type RunReport struct {
	RunID   string
	Goal    string
	Outcome RunOutcome
	Reason  FailureReason
	Detail  string
	Steps   int
	History []HistoryEntry
	Elapsed time.Duration
}

type Verdict string

const (
	VerdictPass     Verdict = "pass"
	VerdictFail     Verdict = "fail"
	VerdictContinue Verdict = "continue"
)
