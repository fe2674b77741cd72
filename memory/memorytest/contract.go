// Package memorytest checks memory.ConversationStore implementations against
// the behaviour agents rely on.
package memorytest

import (
	"context"
	"testing"

	"github.com/KamdynS/heartcrew/memory"
)

// RunConversationContract exercises cs using sessions prefixed with session.
func RunConversationContract(t *testing.T, cs memory.ConversationStore, session string) {
	t.Helper()
	ctx := context.Background()
	other := session + "-other"
	t.Cleanup(func() {
		_ = cs.ClearSession(ctx, session)
		_ = cs.ClearSession(ctx, other)
	})

	if err := cs.AppendMessage(ctx, session, memory.Message{Role: "user", Content: "hello"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	call := memory.ToolCall{ID: "call_1", Name: "Heart Disease Predictor", Arguments: `{"patient_data":"x"}`}
	err := cs.AppendMessage(ctx, session,
		memory.Message{Role: "assistant", ToolCalls: []memory.ToolCall{call}},
		memory.Message{Role: "tool", Content: "ML Model Prediction: STEMI", ToolCallID: "call_1"},
	)
	if err != nil {
		t.Fatalf("append batch: %v", err)
	}
	if err := cs.AppendMessage(ctx, other, memory.Message{Role: "user", Content: "elsewhere"}); err != nil {
		t.Fatalf("append other: %v", err)
	}

	msgs, err := cs.GetMessages(ctx, session)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("want 3 messages got %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" || msgs[2].Role != "tool" {
		t.Fatalf("unexpected roles: %+v", msgs)
	}
	if len(msgs[1].ToolCalls) != 1 || msgs[1].ToolCalls[0] != call {
		t.Fatalf("tool call not preserved: %+v", msgs[1].ToolCalls)
	}
	if msgs[2].ToolCallID != "call_1" {
		t.Fatalf("tool call id not preserved: %+v", msgs[2])
	}
	if msgs[0].Timestamp == 0 {
		t.Fatal("timestamp should be stamped on append")
	}

	ids, err := cs.Sessions(ctx)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if !contains(ids, session) || !contains(ids, other) {
		t.Fatalf("sessions missing entries: %v", ids)
	}

	if err := cs.AppendMessage(ctx, "", memory.Message{Role: "user"}); err == nil {
		t.Fatal("expected error for empty session")
	}

	if err := cs.ClearSession(ctx, session); err != nil {
		t.Fatalf("clear session: %v", err)
	}
	msgs, err = cs.GetMessages(ctx, session)
	if err != nil {
		t.Fatalf("get after clear: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected 0 after clear, got %d", len(msgs))
	}
	msgs, _ = cs.GetMessages(ctx, other)
	if len(msgs) != 1 {
		t.Fatalf("clearing one session touched another: %d", len(msgs))
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
