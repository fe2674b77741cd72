// Package core runs a single tool-using agent against an LLM.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/KamdynS/heartcrew/llm"
)

// DefaultMaxIterations bounds the model/tool loop when AgentConfig leaves it
// unset. Two turns are the minimum for one tool round trip.
const DefaultMaxIterations = 5

// ErrMaxIterations is returned when the model is still requesting tools after
// the last allowed iteration.
var ErrMaxIterations = errors.New("agent: iteration limit reached before a final answer")

// Message represents a conversation message with role and content
type Message struct {
	Role    string            `json:"role"`
	Content string            `json:"content"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Agent defines the core interface for AI agents
type Agent interface {
	// Run executes one reasoning-action loop with the given input and returns output
	Run(ctx context.Context, input Message) (Message, error)
}

// AgentConfig holds configuration for creating agents
type AgentConfig struct {
	Name          string
	MaxIterations int
	Timeout       time.Duration
	SystemPrompt  string
	Temperature   *float64
	MaxTokens     *int
}

// Middleware observes and may veto each step of a run. Returning an error
// aborts the run.
type Middleware interface {
	BeforeLLMCall(ctx context.Context, req *llm.ChatRequest) error
	AfterLLMResponse(ctx context.Context, resp *llm.Response) error
	BeforeToolExecute(ctx context.Context, toolName string, input string) error
	AfterToolExecute(ctx context.Context, toolName string, result string, execErr error) error
	AfterRun(ctx context.Context, final Message) error
}

type sessionKey struct{}

// WithSession scopes the runs made with ctx to one conversation. Agents keep
// separate transcripts within a session.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionFromContext returns the session set by WithSession.
func SessionFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionKey{}).(string)
	return id, ok && id != ""
}
