// Package memory keeps the per-session conversation transcripts agents
// replay into the model on every turn.
package memory

import (
	"context"
	"errors"
)

// ErrEmptySession is returned when a session ID is blank.
var ErrEmptySession = errors.New("memory: empty session id")

// ConversationStore holds ordered transcripts keyed by session.
type ConversationStore interface {
	// AppendMessage adds messages to the end of a session's transcript
	AppendMessage(ctx context.Context, sessionID string, msgs ...Message) error

	// GetMessages returns the transcript in append order; an unknown session
	// yields an empty slice
	GetMessages(ctx context.Context, sessionID string) ([]Message, error)

	// ClearSession removes a session's transcript
	ClearSession(ctx context.Context, sessionID string) error

	// Sessions lists the sessions that currently hold messages
	Sessions(ctx context.Context) ([]string, error)
}

// Message is one transcript entry. Tool calls and tool results keep the IDs
// that pair them so a transcript can be replayed to a provider verbatim.
type Message struct {
	Role       string            `json:"role"`
	Content    string            `json:"content"`
	Name       string            `json:"name,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall        `json:"tool_calls,omitempty"`
	Timestamp  int64             `json:"timestamp"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// ToolCall is a model's request to run a tool.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// SessionKey joins a crew run ID and an agent name into one session ID, so
// agents sharing a store keep separate transcripts.
func SessionKey(runID, agent string) string {
	if agent == "" {
		return runID
	}
	return runID + "/" + agent
}
