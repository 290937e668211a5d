// Package supervisor drives the observe -> plan -> execute loop for one run.
// It owns all recovery policy: step limits, consecutive-failure aborts,
// bounded capture retries and no-progress detection. Side effects on the
// device happen only inside executor invocations.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"droid-agent/internal/application/port/input"
	"droid-agent/internal/application/port/output"
	"droid-agent/internal/domain/entity"
)

type Config struct {
	// StepLimit bounds the number of executed actions per run.
	StepLimit int
	// FailureThreshold aborts the run after this many consecutive failed
	// executions. Distinct from the step limit.
	FailureThreshold int
	// NoProgressWindow aborts after this many consecutive observations
	// judged unchanged. Zero disables the check.
	NoProgressWindow int
	// CaptureRetries is the extra attempts allowed per observation capture.
	CaptureRetries int
	// CaptureTimeout and ActionTimeout bound individual calls, independent
	// of the run's step limit.
	CaptureTimeout time.Duration
	ActionTimeout  time.Duration
	// PlannerTimeout bounds one model consultation (planner or verifier).
	// Zero means no per-call bound beyond the run context.
	PlannerTimeout time.Duration
	// VerifyFromStep is the first step on which the verifier is consulted.
	// VerifyFailAfterStep is the step after which a verifier FAIL aborts
	// the run instead of being advisory.
	VerifyFromStep      int
	VerifyFailAfterStep int
}

func DefaultConfig() Config {
	return Config{
		StepLimit:           15,
		FailureThreshold:    3,
		NoProgressWindow:    4,
		CaptureRetries:      2,
		CaptureTimeout:      15 * time.Second,
		ActionTimeout:       30 * time.Second,
		PlannerTimeout:      2 * time.Minute,
		VerifyFromStep:      3,
		VerifyFailAfterStep: 7,
	}
}

var _ input.RunSupervisor = (*Supervisor)(nil)

type Supervisor struct {
	source   output.ObservationSource
	planner  output.Planner
	executor output.ActionExecutor
	verifier output.Verifier
	compare  output.ObservationComparer
	logger   output.LoggerPort
	cfg      Config
}

type Option func(*Supervisor)

// WithVerifier installs an out-of-band goal verifier. Without one the run
// ends only on a planner terminate or an exhaustion condition.
func WithVerifier(v output.Verifier) Option {
	return func(s *Supervisor) { s.verifier = v }
}

// WithComparer overrides how observations are judged unchanged for
// no-progress detection.
func WithComparer(c output.ObservationComparer) Option {
	return func(s *Supervisor) { s.compare = c }
}

func New(
	source output.ObservationSource,
	planner output.Planner,
	executor output.ActionExecutor,
	logger output.LoggerPort,
	cfg Config,
	opts ...Option,
) *Supervisor {
	s := &Supervisor{
		source:   source,
		planner:  planner,
		executor: executor,
		logger:   logger,
		cfg:      cfg,
		compare: func(a, b *entity.Observation) bool {
			return a.Digest == b.Digest
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Supervisor) Run(ctx context.Context, goal string) (*entity.RunReport, error) {
	state := entity.NewRunState(goal, s.cfg.StepLimit)
	log := s.logger.WithField("run_id", state.RunID)

	log.Info("Run started", "goal", goal, "step_limit", s.cfg.StepLimit)

	var prev *entity.Observation
	unchanged := 0

	for state.Step < state.StepLimit {
		// Cancellation is honored between iterations only; an in-flight
		// executor call always completes first.
		select {
		case <-ctx.Done():
			log.Warn("Run canceled", "step", state.Step)
			return s.report(state, entity.RunFailure, entity.FailureCanceled, ctx.Err().Error()), ctx.Err()
		default:
		}

		obs, err := s.capture(ctx, log)
		if err != nil {
			if ctx.Err() != nil {
				log.Warn("Run canceled during capture", "step", state.Step)
				return s.report(state, entity.RunFailure, entity.FailureCanceled, ctx.Err().Error()), ctx.Err()
			}
			log.Error("Observation unavailable, aborting", "error", err)
			return s.report(state, entity.RunFailure, entity.FailureCapture, err.Error()), err
		}

		if s.cfg.NoProgressWindow > 0 {
			if prev != nil && s.compare(prev, obs) {
				unchanged++
			} else {
				unchanged = 1
			}
			prev = obs
			if unchanged >= s.cfg.NoProgressWindow {
				log.Warn("No progress detected", "window", s.cfg.NoProgressWindow, "step", state.Step)
				return s.report(state, entity.RunFailure, entity.FailureNoProgress,
					fmt.Sprintf("%d consecutive unchanged observations", unchanged)), nil
			}
		}

		if s.verifier != nil && state.Step >= s.cfg.VerifyFromStep {
			verifyCtx, cancel := s.modelCtx(ctx)
			verdict, detail, verr := s.verifier.Verify(verifyCtx, goal, obs, state.Step)
			cancel()
			switch {
			case verr != nil:
				log.Warn("Verifier unavailable, continuing", "error", verr)
			case verdict == entity.VerdictPass:
				log.Info("Verifier reports goal reached", "step", state.Step)
				return s.report(state, entity.RunSuccess, "", detail), nil
			case verdict == entity.VerdictFail && state.Step > s.cfg.VerifyFailAfterStep:
				log.Warn("Verifier reports failure past grace window", "step", state.Step, "detail", detail)
				return s.report(state, entity.RunFailure, entity.FailureGoal, detail), nil
			case verdict == entity.VerdictFail:
				// Advisory this early; intermediate screens often look wrong.
				log.Debug("Verifier fail verdict ignored", "step", state.Step, "detail", detail)
			}
		}

		planCtx, cancel := s.modelCtx(ctx)
		action, err := s.planner.Decide(planCtx, output.Decision{
			Goal:        goal,
			Observation: obs,
			History:     state.History,
		})
		cancel()
		if err != nil {
			log.Error("Planner error, aborting", "error", err)
			return s.report(state, entity.RunFailure, entity.FailurePlanner, err.Error()),
				fmt.Errorf("planner: %w", err)
		}
		if verr := action.Validate(); verr != nil {
			log.Error("Planner produced invalid action, aborting", "action", action.String(), "error", verr)
			return s.report(state, entity.RunFailure, entity.FailurePlanner, verr.Error()),
				fmt.Errorf("planner: %w", verr)
		}

		log.Info("Planner decided", "step", state.Step, "action", action.String())

		// A terminate ends the run within the same iteration; no further
		// capture, and the terminal action is not part of history.
		if action.Kind == entity.ActionTerminate {
			if action.Outcome == entity.RunSuccess {
				return s.report(state, entity.RunSuccess, "", action.Reason), nil
			}
			return s.report(state, entity.RunFailure, entity.FailureGoal, action.Reason), nil
		}

		execCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ActionTimeout)
		result := s.executor.Execute(execCtx, action)
		cancel()

		state.Append(entity.HistoryEntry{
			Step:               state.Step + 1,
			ObservationSummary: obs.Summary(),
			Action:             action,
			Result:             result,
		})
		state.Step++

		if result.Success {
			state.ConsecutiveFailures = 0
		} else {
			state.ConsecutiveFailures++
			log.Warn("Action failed", "step", state.Step, "error", result.Error,
				"consecutive", state.ConsecutiveFailures)
			if state.ConsecutiveFailures >= s.cfg.FailureThreshold {
				return s.report(state, entity.RunFailure, entity.FailureRepeatedExecution,
					fmt.Sprintf("%d consecutive execution failures", state.ConsecutiveFailures)), nil
			}
		}
	}

	log.Warn("Step limit exceeded", "limit", state.StepLimit)
	return s.report(state, entity.RunStepLimitExceeded, "", ""), nil
}

func (s *Supervisor) modelCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.PlannerTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.PlannerTimeout)
}

// capture fetches one observation with a per-call timeout and a small
// bounded retry budget. Only capture errors are retried here; everything
// else in the loop has its own policy.
func (s *Supervisor) capture(ctx context.Context, log output.LoggerPort) (*entity.Observation, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.CaptureRetries; attempt++ {
		captureCtx, cancel := context.WithTimeout(ctx, s.cfg.CaptureTimeout)
		obs, err := s.source.Capture(captureCtx)
		cancel()
		if err == nil {
			return obs, nil
		}
		lastErr = err
		log.Warn("Capture failed", "attempt", attempt+1, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (s *Supervisor) report(state *entity.RunState, outcome entity.RunOutcome, reason entity.FailureReason, detail string) *entity.RunReport {
	return &entity.RunReport{
		RunID:   state.RunID,
		Goal:    state.Goal,
		Outcome: outcome,
		Reason:  reason,
		Detail:  detail,
		Steps:   state.Step,
		History: state.History,
		Elapsed: time.Since(state.StartedAt),
	}
}
