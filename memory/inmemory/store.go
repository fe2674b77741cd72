package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/KamdynS/heartcrew/memory"
)

// ConversationStore implements memory.ConversationStore in process memory.
type ConversationStore struct {
	mu       sync.RWMutex
	sessions map[string][]memory.Message
	now      func() time.Time
}

// NewConversationStore creates an empty store
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		sessions: make(map[string][]memory.Message),
		now:      time.Now,
	}
}

func (cs *ConversationStore) AppendMessage(ctx context.Context, sessionID string, msgs ...memory.Message) error {
	if sessionID == "" {
		return memory.ErrEmptySession
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for _, m := range msgs {
		if m.Timestamp == 0 {
			m.Timestamp = cs.now().Unix()
		}
		cs.sessions[sessionID] = append(cs.sessions[sessionID], m)
	}
	return nil
}

func (cs *ConversationStore) GetMessages(ctx context.Context, sessionID string) ([]memory.Message, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	msgs := cs.sessions[sessionID]
	out := make([]memory.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (cs *ConversationStore) ClearSession(ctx context.Context, sessionID string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.sessions, sessionID)
	return nil
}

func (cs *ConversationStore) Sessions(ctx context.Context) ([]string, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	ids := make([]string, 0, len(cs.sessions))
	for id := range cs.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

var _ memory.ConversationStore = (*ConversationStore)(nil)
