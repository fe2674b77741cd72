package inmemory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/KamdynS/heartcrew/memory"
	"github.com/KamdynS/heartcrew/memory/memorytest"
)

func TestConversationContract_InMemory(t *testing.T) {
	memorytest.RunConversationContract(t, NewConversationStore(), "s1")
}

func TestGetMessagesReturnsCopy(t *testing.T) {
	ctx := context.Background()
	cs := NewConversationStore()
	_ = cs.AppendMessage(ctx, "s", memory.Message{Role: "user", Content: "a"})

	msgs, _ := cs.GetMessages(ctx, "s")
	msgs[0].Content = "mutated"
	again, _ := cs.GetMessages(ctx, "s")
	if again[0].Content != "a" {
		t.Fatal("store mutated through returned slice")
	}
}

func TestConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	cs := NewConversationStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = cs.AppendMessage(ctx, "shared", memory.Message{Role: "user", Content: fmt.Sprint(i)})
		}(i)
	}
	wg.Wait()
	msgs, _ := cs.GetMessages(ctx, "shared")
	if len(msgs) != 20 {
		t.Fatalf("want 20 messages got %d", len(msgs))
	}
}

func TestAppendHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewConversationStore().AppendMessage(ctx, "s", memory.Message{Role: "user"}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestSessionKey(t *testing.T) {
	if got := memory.SessionKey("run", "Diagnosis Doctor"); got != "run/Diagnosis Doctor" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := memory.SessionKey("run", ""); got != "run" {
		t.Fatalf("unexpected key %q", got)
	}
}
