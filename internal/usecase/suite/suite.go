// Package suite runs a fixed set of automation cases against one or more
// devices and scores the outcomes. A case may expect failure: the agent
// passing it means it correctly reported an impossible goal instead of
// hallucinating success.
package suite

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"droid-agent/internal/application/port/input"
	"droid-agent/internal/application/port/output"
	"droid-agent/internal/domain/entity"
)

type Case struct {
	ID   int
	Name string
	Goal string
	// Fresh wipes the app's data before the run starts.
	Fresh bool
	// ExpectFailure inverts scoring: the case passes when the agent
	// reports the goal as impossible.
	ExpectFailure bool
}

type CaseResult struct {
	Case    Case
	Serial  string
	Report  *entity.RunReport
	Err     error
	Passed  bool
	Elapsed time.Duration
}

// SupervisorFactory builds a run supervisor bound to one device.
type SupervisorFactory func(serial string) (input.RunSupervisor, error)

// ResetFunc restores the app under test to a clean state on one device.
type ResetFunc func(ctx context.Context, serial string) error

type Runner struct {
	factory SupervisorFactory
	reset   ResetFunc
	logger  output.LoggerPort
}

func NewRunner(factory SupervisorFactory, reset ResetFunc, logger output.LoggerPort) *Runner {
	return &Runner{factory: factory, reset: reset, logger: logger}
}

// Run distributes cases over the given devices and waits for all of them.
// Case failures are results, not errors; an error means the suite itself
// could not run (no devices, factory failure, context canceled).
func (r *Runner) Run(ctx context.Context, serials []string, cases []Case) ([]CaseResult, error) {
	if len(serials) == 0 {
		return nil, fmt.Errorf("no devices to run on")
	}

	jobs := make(chan Case)
	var mu sync.Mutex
	var results []CaseResult

	g, ctx := errgroup.WithContext(ctx)

	for _, serial := range serials {
		g.Go(func() error {
			sup, err := r.factory(serial)
			if err != nil {
				return fmt.Errorf("supervisor for %s: %w", serial, err)
			}
			for c := range jobs {
				res := r.runCase(ctx, sup, serial, c)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for _, c := range cases {
			select {
			case jobs <- c:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Case.ID < results[j].Case.ID })
	return results, nil
}

func (r *Runner) runCase(ctx context.Context, sup input.RunSupervisor, serial string, c Case) CaseResult {
	log := r.logger.WithField("case", c.ID).WithField("serial", serial)
	log.Info("Case starting", "name", c.Name)

	if c.Fresh && r.reset != nil {
		if err := r.reset(ctx, serial); err != nil {
			log.Error("Fresh-state reset failed", "error", err)
			return CaseResult{Case: c, Serial: serial, Err: fmt.Errorf("reset: %w", err)}
		}
	}

	start := time.Now()
	report, err := sup.Run(ctx, c.Goal)
	elapsed := time.Since(start)

	res := CaseResult{
		Case:    c,
		Serial:  serial,
		Report:  report,
		Err:     err,
		Elapsed: elapsed,
	}
	res.Passed = scored(c, report, err)

	log.Info("Case finished", "passed", res.Passed, "elapsed", elapsed)
	return res
}

func scored(c Case, report *entity.RunReport, err error) bool {
	if err != nil || report == nil {
		return false
	}
	if c.ExpectFailure {
		return report.Outcome == entity.RunFailure && report.Reason == entity.FailureGoal
	}
	return report.Outcome == entity.RunSuccess
}

// Summary tallies results into a one-line verdict.
func Summary(results []CaseResult) (passed, failed int) {
	for _, res := range results {
		if res.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// DefaultCases is the built-in Obsidian regression set.
func DefaultCases() []Case {
	return []Case{
		{
			ID:    1,
			Name:  "create vault",
			Goal:  "Create a new vault named TestVault and open it",
			Fresh: true,
		},
		{
			ID:   2,
			Name: "create note",
			Goal: "Create a new note titled Shopping List containing the lines milk, bread and eggs",
		},
		{
			ID:   3,
			Name: "toggle dark mode",
			Goal: "Open the appearance settings and switch the theme to dark mode",
		},
		{
			ID:            4,
			Name:          "impossible export",
			Goal:          "Export the current note as a PowerPoint presentation using the built-in export menu",
			ExpectFailure: true,
		},
	}
}
