// Package planner maps one observation to the single next device action.
// The model sits behind output.LLMPort and the supported actions are offered
// to it as tool definitions; a response without exactly one decodable tool
// call is a planner error, fatal to the run.
package planner

import (
	"context"
	"fmt"
	"strings"

	"droid-agent/internal/application/port/output"
	"droid-agent/internal/application/service"
	"droid-agent/internal/domain/entity"
	"droid-agent/internal/infrastructure/prompts"
	"droid-agent/internal/infrastructure/uiauto"
)

const (
	maxHistoryLines = 20
	maxElementLines = 120
)

var _ output.Planner = (*VisionPlanner)(nil)

type VisionPlanner struct {
	llm     output.LLMPort
	catalog *service.Catalog
	logger  output.LoggerPort
	memory  output.MemoryPort
	// gridFn renders a coordinate grid onto a screenshot for the vision
	// fallback when the hierarchy is empty.
	gridFn func(screenshot []byte) ([]byte, error)
	// trace observes each decided action, used for debug artifacts like
	// tap-marker screenshots.
	trace func(obs *entity.Observation, action entity.Action, step int)
}

type Option func(*VisionPlanner)

func WithMemory(m output.MemoryPort) Option {
	return func(p *VisionPlanner) { p.memory = m }
}

func WithGridOverlay(fn func([]byte) ([]byte, error)) Option {
	return func(p *VisionPlanner) { p.gridFn = fn }
}

func WithTrace(fn func(obs *entity.Observation, action entity.Action, step int)) Option {
	return func(p *VisionPlanner) { p.trace = fn }
}

func New(llm output.LLMPort, catalog *service.Catalog, logger output.LoggerPort, opts ...Option) *VisionPlanner {
	p := &VisionPlanner{llm: llm, catalog: catalog, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *VisionPlanner) Decide(ctx context.Context, d output.Decision) (entity.Action, error) {
	if d.Observation == nil {
		return entity.Action{}, fmt.Errorf("%w: no observation", entity.ErrNoDecision)
	}

	messages := []entity.Message{
		{Role: entity.RoleSystem, Content: prompts.PlannerSystemPrompt},
		p.userMessage(d),
	}

	resp, err := p.llm.Chat(ctx, output.ChatRequest{
		Messages:    messages,
		Tools:       p.catalog.Definitions(),
		Temperature: 0.0,
	})
	if err != nil {
		return entity.Action{}, fmt.Errorf("planner llm request failed: %w", err)
	}

	if len(resp.Message.ToolCalls) == 0 {
		return entity.Action{}, fmt.Errorf("%w: model answered %q", entity.ErrNoDecision,
			truncate(resp.Message.Content, 200))
	}
	if len(resp.Message.ToolCalls) > 1 {
		p.logger.Warn("Model returned multiple tool calls, using the first",
			"count", len(resp.Message.ToolCalls))
	}

	tc := resp.Message.ToolCalls[0]
	action, err := p.catalog.Decode(tc.Name, tc.Arguments)
	if err != nil {
		return entity.Action{}, fmt.Errorf("%w: %v", entity.ErrNoDecision, err)
	}

	action, confirmed := p.snapToHierarchy(d, action)
	p.remember(d, action, confirmed)
	if p.trace != nil {
		p.trace(d.Observation, action, len(d.History)+1)
	}
	return action, nil
}

// snapToHierarchy corrects a labeled tap to the center of the matching
// hierarchy element. Reported bounds beat estimated pixels; vision guesses
// are kept only when no element matches the label. The bool reports whether
// a hierarchy element confirmed the target.
func (p *VisionPlanner) snapToHierarchy(d output.Decision, action entity.Action) (entity.Action, bool) {
	if action.Kind != entity.ActionTap || action.Target == "" || len(d.Observation.Elements) == 0 {
		return action, false
	}
	el, ok := uiauto.FindButton(d.Observation.Elements, action.Target)
	if !ok {
		el, ok = uiauto.FindByText(d.Observation.Elements, action.Target)
	}
	if !ok {
		return action, false
	}
	cx, cy := el.Bounds.Center()
	if cx != action.X || cy != action.Y {
		p.logger.Debug("Tap snapped to hierarchy element",
			"target", action.Target, "element", el.ID,
			"from_x", action.X, "from_y", action.Y, "to_x", cx, "to_y", cy)
		action.X, action.Y = cx, cy
	}
	return action, true
}

// remember stores hierarchy-confirmed tap targets for future runs. Vision
// guesses are not memorized; a wrong guess would poison later runs.
func (p *VisionPlanner) remember(d output.Decision, action entity.Action, confirmed bool) {
	if p.memory == nil {
		return
	}
	if action.Kind == entity.ActionTap && confirmed {
		p.memory.RememberElement(action.Target, action.X, action.Y, d.Observation.VisibleText(5))
	}
	if action.Kind == entity.ActionTerminate {
		summary := d.Observation.VisibleText(10)
		if action.Outcome == entity.RunSuccess {
			p.memory.RememberSuccess("completed: "+d.Goal, summary)
		} else {
			p.memory.RememberFailure(action.Reason, summary, action.Reason)
		}
	}
}

func (p *VisionPlanner) userMessage(d output.Decision) entity.Message {
	var b strings.Builder

	fmt.Fprintf(&b, "OBJECTIVE: %s\n\n", d.Goal)

	b.WriteString("ACTIONS ALREADY COMPLETED:\n")
	if len(d.History) == 0 {
		b.WriteString("None yet.\n")
	} else {
		start := 0
		if len(d.History) > maxHistoryLines {
			start = len(d.History) - maxHistoryLines
		}
		for _, entry := range d.History[start:] {
			status := "ok"
			if !entry.Result.Success {
				status = "FAILED: " + entry.Result.Error
			}
			fmt.Fprintf(&b, "%d. %s (%s)\n", entry.Step, entry.Action.String(), status)
		}
	}

	obs := d.Observation
	fmt.Fprintf(&b, "\nSCREEN: %dx%d pixels\n", obs.ScreenWidth, obs.ScreenHeight)

	if len(obs.Elements) > 0 {
		b.WriteString("\nUI HIERARCHY (id, class, text/desc, bounds, center):\n")
		b.WriteString(renderElements(obs.Elements))
	} else {
		b.WriteString("\nUI HIERARCHY: unavailable. A coordinate grid is drawn on the screenshot; estimate tap coordinates from it.\n")
	}

	if text := obs.VisibleText(20); text != "" {
		fmt.Fprintf(&b, "\nVISIBLE UI TEXT: %s\n", text)
	}

	hints := d.MemoryHints
	if hints == "" && p.memory != nil {
		hints = p.memory.Hints()
	}
	if hints != "" {
		fmt.Fprintf(&b, "\nAGENT MEMORY (learned from past runs):\n%s\n", hints)
	}

	msg := entity.Message{Role: entity.RoleUser, Content: b.String()}
	if img := p.screenshotFor(obs); img != nil {
		msg.Images = []entity.ImageAttachment{{Data: img, MIME: "image/jpeg"}}
	}
	return msg
}

// screenshotFor returns the plain screenshot when a hierarchy is available,
// and the grid-overlay rendition when the model must work from pixels alone.
func (p *VisionPlanner) screenshotFor(obs *entity.Observation) []byte {
	if obs.Screenshot == nil {
		return nil
	}
	if len(obs.Elements) > 0 || p.gridFn == nil {
		return obs.Screenshot.Data
	}
	withGrid, err := p.gridFn(obs.Screenshot.Data)
	if err != nil {
		p.logger.Warn("Grid overlay failed, sending plain screenshot", "error", err)
		return obs.Screenshot.Data
	}
	return withGrid
}

func renderElements(elements []entity.UIElement) string {
	var b strings.Builder
	count := 0
	for _, el := range elements {
		if count >= maxElementLines {
			fmt.Fprintf(&b, "... (%d more elements omitted)\n", len(elements)-count)
			break
		}
		label := el.Text
		if label == "" {
			label = el.ContentDesc
		}
		if label == "" && !el.Clickable && !el.Focusable {
			continue
		}
		flags := ""
		if el.Clickable {
			flags += " clickable"
		}
		if el.Focusable {
			flags += " focusable"
		}
		if el.Checked {
			flags += " checked"
		}
		cx, cy := el.Bounds.Center()
		fmt.Fprintf(&b, "%s %s %q %s center=(%d,%d)%s\n",
			el.ID, shortClass(el.Class), label, el.Bounds.String(), cx, cy, flags)
		count++
	}
	return b.String()
}

func shortClass(class string) string {
	if idx := strings.LastIndex(class, "."); idx >= 0 {
		return class[idx+1:]
	}
	return class
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
