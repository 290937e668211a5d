package entity

import (
	"fmt"
	"time"
)

type ActionKind string

const (
	ActionTap       ActionKind = "tap"
	ActionSwipe     ActionKind = "swipe"
	ActionTypeText  ActionKind = "type_text"
	ActionKey       ActionKind = "key"
	ActionWait      ActionKind = "wait"
	ActionTerminate ActionKind = "terminate"
)

// Action is one abstract device operation. The planner produces exactly one
// per iteration; the executor consumes it once; it is never mutated.
type Action struct {
	Kind ActionKind

	// Tap / swipe coordinates. For swipe (X, Y) is the start point and
	// (X2, Y2) the end point.
	X, Y   int
	X2, Y2 int

	// Swipe and wait duration.
	Duration time.Duration

	// Text for type_text.
	Text string

	// Android keycode for key.
	KeyCode int

	// Terminate payload.
	Outcome RunOutcome
	Reason  string

	// Target is the element label or id the planner aimed at, kept for
	// history and memory, never interpreted by the executor.
	Target string
}

// Validate reports whether the action is structurally sound. The supervisor
// treats an invalid action from the planner as a fatal logic defect.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionTap:
		if a.X < 0 || a.Y < 0 {
			return fmt.Errorf("tap at negative coordinate (%d, %d)", a.X, a.Y)
		}
	case ActionSwipe:
		if a.X < 0 || a.Y < 0 || a.X2 < 0 || a.Y2 < 0 {
			return fmt.Errorf("swipe with negative coordinate (%d,%d)-(%d,%d)", a.X, a.Y, a.X2, a.Y2)
		}
		if a.Duration < 0 {
			return fmt.Errorf("swipe with negative duration %s", a.Duration)
		}
	case ActionTypeText:
		if a.Text == "" {
			return fmt.Errorf("type_text with empty text")
		}
	case ActionKey:
		if a.KeyCode <= 0 {
			return fmt.Errorf("key with keycode %d", a.KeyCode)
		}
	case ActionWait:
		if a.Duration <= 0 {
			return fmt.Errorf("wait with duration %s", a.Duration)
		}
	case ActionTerminate:
		if a.Outcome != RunSuccess && a.Outcome != RunFailure {
			return fmt.Errorf("terminate with outcome %q", a.Outcome)
		}
	case "":
		return fmt.Errorf("action without kind")
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	return nil
}

func (a Action) String() string {
	switch a.Kind {
	case ActionTap:
		return fmt.Sprintf("tap(%d, %d)", a.X, a.Y)
	case ActionSwipe:
		return fmt.Sprintf("swipe(%d,%d -> %d,%d, %s)", a.X, a.Y, a.X2, a.Y2, a.Duration)
	case ActionTypeText:
		return fmt.Sprintf("type_text(%q)", a.Text)
	case ActionKey:
		return fmt.Sprintf("key(%d)", a.KeyCode)
	case ActionWait:
		return fmt.Sprintf("wait(%s)", a.Duration)
	case ActionTerminate:
		return fmt.Sprintf("terminate(%s, %q)", a.Outcome, a.Reason)
	default:
		return string(a.Kind)
	}
}
