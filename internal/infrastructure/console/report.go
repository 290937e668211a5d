// Package console renders run and suite results for interactive use.
package console

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"droid-agent/internal/domain/entity"
	"droid-agent/internal/usecase/suite"
)

var (
	headline = color.New(color.FgCyan, color.Bold)
	good     = color.New(color.FgGreen, color.Bold)
	bad      = color.New(color.FgRed, color.Bold)
	warn     = color.New(color.FgYellow)
	dim      = color.New(color.Faint)
)

// PrintRunReport renders one run's outcome and its step-by-step history.
func PrintRunReport(w io.Writer, report *entity.RunReport) {
	headline.Fprintf(w, "\nRun %s\n", report.RunID)
	fmt.Fprintf(w, "Goal: %s\n", report.Goal)

	switch report.Outcome {
	case entity.RunSuccess:
		good.Fprintln(w, "Outcome: success")
	case entity.RunStepLimitExceeded:
		warn.Fprintf(w, "Outcome: step limit exceeded after %d steps\n", report.Steps)
	default:
		bad.Fprintf(w, "Outcome: failure (%s)\n", report.Reason)
	}
	if report.Detail != "" {
		fmt.Fprintf(w, "Detail: %s\n", report.Detail)
	}
	fmt.Fprintf(w, "Steps: %d, elapsed: %s\n", report.Steps, report.Elapsed.Round(100 * time.Millisecond))

	if len(report.History) == 0 {
		return
	}
	dim.Fprintln(w, "\nHistory:")
	for _, entry := range report.History {
		status := good.Sprint("ok")
		if !entry.Result.Success {
			status = bad.Sprintf("failed: %s", entry.Result.Error)
		}
		fmt.Fprintf(w, "  %2d. %-40s %s\n", entry.Step, entry.Action.String(), status)
	}
}

// PrintSuiteResults renders the scoreboard for a suite run.
func PrintSuiteResults(w io.Writer, results []suite.CaseResult) {
	headline.Fprintln(w, "\nSuite results")
	for _, res := range results {
		var status string
		switch {
		case res.Passed:
			status = good.Sprint("PASS")
		case res.Err != nil:
			status = bad.Sprintf("ERROR: %v", res.Err)
		default:
			status = bad.Sprint("FAIL")
		}
		fmt.Fprintf(w, "  case %d %-24s %-8s %s\n", res.Case.ID, res.Case.Name, status, dim.Sprint(res.Elapsed.Round(100 * time.Millisecond)))
	}

	passed, failed := suite.Summary(results)
	if failed == 0 {
		good.Fprintf(w, "\n%d/%d cases passed\n", passed, passed+failed)
	} else {
		bad.Fprintf(w, "\n%d/%d cases passed\n", passed, passed+failed)
	}
}
