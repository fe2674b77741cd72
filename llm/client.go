// Package llm defines the chat model interface the agents use, the model
// catalogue, typed provider errors, retries and provider fallback.
package llm

import (
	"context"
	"time"
)

// Client is a chat model the doctors talk to. Implementations retry
// transient failures themselves and report errors as *LLMError.
type Client interface {
	Chat(ctx context.Context, req *ChatRequest) (*Response, error)
	Model() string
	Provider() Provider
	Validate() error
}

// Message is one conversation turn. Role is "system", "user", "assistant"
// or "tool". An assistant turn that requested tools carries them in
// ToolCalls, and each tool turn answers one call by ToolCallID.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ChatRequest is one model call. Nil Temperature and MaxTokens leave the
// client's configured values in place; an empty Model uses the client's.
type ChatRequest struct {
	Messages     []Message `json:"messages"`
	Model        string    `json:"model,omitempty"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Temperature  *float64  `json:"temperature,omitempty"`
	MaxTokens    *int      `json:"max_tokens,omitempty"`
	Tools        []Tool    `json:"tools,omitempty"`
}

// Tool advertises one callable function to the model.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// ToolCall is a function call the model asked for. Arguments is raw JSON.
type ToolCall struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

type Function struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Response is the model's answer: text, tool calls, or both.
type Response struct {
	Content      string        `json:"content"`
	Role         string        `json:"role,omitempty"`
	Model        string        `json:"model"`
	Provider     Provider      `json:"provider"`
	Usage        *Usage        `json:"usage,omitempty"`
	FinishReason string        `json:"finish_reason,omitempty"`
	ToolCalls    []ToolCall    `json:"tool_calls,omitempty"`
	Latency      time.Duration `json:"latency,omitempty"`
}

// Usage is the provider's token accounting for one call. Cost is estimated
// in USD from the model catalogue.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	Cost         float64 `json:"cost,omitempty"`
}

// RetryConfig controls the backoff clients apply to retryable errors.
// RetryableErrors lists ErrorType values.
type RetryConfig struct {
	MaxRetries      int           `json:"max_retries" yaml:"max_retries"`
	InitialDelay    time.Duration `json:"initial_delay" yaml:"initial_delay"`
	MaxDelay        time.Duration `json:"max_delay" yaml:"max_delay"`
	BackoffFactor   float64       `json:"backoff_factor" yaml:"backoff_factor"`
	RetryableErrors []string      `json:"retryable_errors" yaml:"retryable_errors"`
}

// DefaultRetryConfig retries rate limits, server errors, timeouts and
// dropped connections three times, doubling from one second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2,
		RetryableErrors: []string{
			string(ErrorTypeRateLimit),
			string(ErrorTypeServerError),
			string(ErrorTypeTimeout),
			string(ErrorTypeConnectionError),
		},
	}
}
