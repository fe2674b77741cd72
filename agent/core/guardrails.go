package core

import (
	"context"
	"errors"
	"strings"

	"github.com/KamdynS/heartcrew/llm"
)

// ErrBlocked is returned when guardrails refuse the input.
var ErrBlocked = errors.New("request blocked by guardrails")

// InputGuardrails caps and screens the newest user message before it
// reaches the model. The zero value lets everything through.
type InputGuardrails struct {
	// MaxInputChars truncates longer input; zero means no limit
	MaxInputChars int
	// DenySubstrings blocks input containing any of them, case-insensitively
	DenySubstrings []string
}

func (g *InputGuardrails) BeforeLLMCall(ctx context.Context, req *llm.ChatRequest) error {
	if req == nil {
		return nil
	}
	last := lastUser(req.Messages)
	if last == nil {
		return nil
	}
	if g.MaxInputChars > 0 && len([]rune(last.Content)) > g.MaxInputChars {
		last.Content = string([]rune(last.Content)[:g.MaxInputChars])
	}
	lower := strings.ToLower(last.Content)
	for _, s := range g.DenySubstrings {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return ErrBlocked
		}
	}
	return nil
}

func lastUser(msgs []llm.Message) *llm.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return &msgs[i]
		}
	}
	return nil
}

func (g *InputGuardrails) AfterLLMResponse(ctx context.Context, resp *llm.Response) error {
	return nil
}
func (g *InputGuardrails) BeforeToolExecute(ctx context.Context, toolName string, input string) error {
	return nil
}
func (g *InputGuardrails) AfterToolExecute(ctx context.Context, toolName string, result string, execErr error) error {
	return nil
}
func (g *InputGuardrails) AfterRun(ctx context.Context, final Message) error { return nil }

var _ Middleware = (*InputGuardrails)(nil)
