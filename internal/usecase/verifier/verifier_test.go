package verifier

import (
	"context"
	"errors"
	"testing"

	"droid-agent/internal/application/port/output"
	"droid-agent/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)                      {}
func (nopLogger) Info(string, ...any)                       {}
func (nopLogger) Warn(string, ...any)                       {}
func (nopLogger) Error(string, ...any)                      {}
func (l nopLogger) WithField(string, any) output.LoggerPort { return l }
func (nopLogger) Close() error                              { return nil }

type fakeLLM struct {
	content string
	err     error
}

func (f *fakeLLM) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &output.ChatResponse{Message: entity.Message{Role: entity.RoleAssistant, Content: f.content}}, nil
}

func obsWithScreenshot() *entity.Observation {
	return &entity.Observation{Screenshot: &entity.Screenshot{Data: []byte("jpeg"), Format: "jpeg"}}
}

func TestVerify_ParsesVerdicts(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    entity.Verdict
	}{
		{"plain pass", `{"verdict": "pass", "reason": "vault visible"}`, entity.VerdictPass},
		{"plain fail", `{"verdict": "fail", "reason": "error dialog shown"}`, entity.VerdictFail},
		{"continue", `{"verdict": "continue", "reason": "still on home screen"}`, entity.VerdictContinue},
		{"fenced json", "Here is my judgement:\n```json\n{\"verdict\": \"pass\", \"reason\": \"done\"}\n```", entity.VerdictPass},
		{"uppercase verdict", `{"verdict": "PASS", "reason": "done"}`, entity.VerdictPass},
		{"prose only", "The goal looks accomplished to me.", entity.VerdictContinue},
		{"broken json", `{"verdict": pass}`, entity.VerdictContinue},
		{"unknown verdict", `{"verdict": "probably", "reason": "unsure"}`, entity.VerdictContinue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(&fakeLLM{content: tt.content}, nopLogger{})
			verdict, _, err := v.Verify(context.Background(), "create a vault", obsWithScreenshot(), 4)
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if verdict != tt.want {
				t.Errorf("verdict = %q, want %q", verdict, tt.want)
			}
		})
	}
}

func TestVerify_NoScreenshotIsContinue(t *testing.T) {
	v := New(&fakeLLM{content: `{"verdict": "fail"}`}, nopLogger{})
	verdict, _, err := v.Verify(context.Background(), "goal", &entity.Observation{}, 3)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verdict != entity.VerdictContinue {
		t.Errorf("verdict = %q, want continue without a screenshot", verdict)
	}
}

func TestVerify_LLMErrorPropagates(t *testing.T) {
	v := New(&fakeLLM{err: errors.New("timeout")}, nopLogger{})
	_, _, err := v.Verify(context.Background(), "goal", obsWithScreenshot(), 3)
	if err == nil {
		t.Fatal("expected error from failing llm")
	}
}
