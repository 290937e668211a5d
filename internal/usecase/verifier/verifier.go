// Package verifier judges a run's progress toward its goal from the current
// screen alone. It is advisory to the supervisor, which decides how much
// weight a verdict carries at each step.
package verifier

import (
	"context"
	"fmt"
	"strings"

	"droid-agent/internal/application/port/output"
	"droid-agent/internal/domain/entity"
	"droid-agent/internal/infrastructure/prompts"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var _ output.Verifier = (*GoalVerifier)(nil)

type GoalVerifier struct {
	llm    output.LLMPort
	logger output.LoggerPort
}

func New(llm output.LLMPort, logger output.LoggerPort) *GoalVerifier {
	return &GoalVerifier{llm: llm, logger: logger}
}

func (v *GoalVerifier) Verify(ctx context.Context, goal string, obs *entity.Observation, step int) (entity.Verdict, string, error) {
	if obs == nil || obs.Screenshot == nil {
		return entity.VerdictContinue, "no screenshot to judge", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "GOAL: %s\nSTEP: %d\n", goal, step)
	if text := obs.VisibleText(20); text != "" {
		fmt.Fprintf(&b, "VISIBLE UI TEXT: %s\n", text)
	}
	b.WriteString("Judge the screenshot against the goal.")

	resp, err := v.llm.Chat(ctx, output.ChatRequest{
		Messages: []entity.Message{
			{Role: entity.RoleSystem, Content: prompts.VerifierSystemPrompt},
			{
				Role:    entity.RoleUser,
				Content: b.String(),
				Images:  []entity.ImageAttachment{{Data: obs.Screenshot.Data, MIME: "image/jpeg"}},
			},
		},
		Temperature: 0.0,
	})
	if err != nil {
		return entity.VerdictContinue, "", fmt.Errorf("verifier llm request failed: %w", err)
	}

	verdict, reason := parseVerdict(resp.Message.Content)
	v.logger.Debug("Goal verdict", "step", step, "verdict", verdict, "reason", reason)
	return verdict, reason, nil
}

// parseVerdict extracts the verdict JSON from the model's reply. Models often
// wrap the object in prose or a code fence, so everything outside the
// outermost braces is ignored. Anything unparseable means continue.
func parseVerdict(content string) (entity.Verdict, string) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return entity.VerdictContinue, "unparseable verdict: " + truncate(content, 120)
	}

	var parsed struct {
		Verdict string `json:"verdict"`
		Reason  string `json:"reason"`
	}
	if err := json.UnmarshalFromString(content[start:end+1], &parsed); err != nil {
		return entity.VerdictContinue, "unparseable verdict: " + truncate(content, 120)
	}

	switch entity.Verdict(strings.ToLower(strings.TrimSpace(parsed.Verdict))) {
	case entity.VerdictPass:
		return entity.VerdictPass, parsed.Reason
	case entity.VerdictFail:
		return entity.VerdictFail, parsed.Reason
	default:
		return entity.VerdictContinue, parsed.Reason
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
