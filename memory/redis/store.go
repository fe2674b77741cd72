// Package redis stores conversation transcripts in Redis lists, one list per
// session.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	rds "github.com/redis/go-redis/v9"

	"github.com/KamdynS/heartcrew/memory"
)

type ConversationStore struct {
	client *rds.Client
	prefix string
	ttl    time.Duration
}

// NewConversationStore keys sessions as "<prefix>:conversation:<id>". A
// positive ttl is refreshed on every append.
func NewConversationStore(client *rds.Client, prefix string, ttl time.Duration) *ConversationStore {
	return &ConversationStore{client: client, prefix: prefix, ttl: ttl}
}

// Open parses a redis:// URL and returns a store backed by a new client.
func Open(url, prefix string, ttl time.Duration) (*ConversationStore, error) {
	opts, err := rds.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewConversationStore(rds.NewClient(opts), prefix, ttl), nil
}

func (cs *ConversationStore) base() string {
	if cs.prefix == "" {
		return "conversation:"
	}
	return cs.prefix + ":conversation:"
}

func (cs *ConversationStore) convKey(sessionID string) string {
	return cs.base() + sessionID
}

// Ping checks the connection.
func (cs *ConversationStore) Ping(ctx context.Context) error {
	return cs.client.Ping(ctx).Err()
}

func (cs *ConversationStore) Close() error { return cs.client.Close() }

func (cs *ConversationStore) AppendMessage(ctx context.Context, sessionID string, msgs ...memory.Message) error {
	if sessionID == "" {
		return memory.ErrEmptySession
	}
	if len(msgs) == 0 {
		return nil
	}
	now := time.Now().Unix()
	vals := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		if m.Timestamp == 0 {
			m.Timestamp = now
		}
		b, err := json.Marshal(m)
		if err != nil {
			return err
		}
		vals = append(vals, b)
	}

	key := cs.convKey(sessionID)
	pipe := cs.client.TxPipeline()
	pipe.RPush(ctx, key, vals...)
	if cs.ttl > 0 {
		pipe.Expire(ctx, key, cs.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (cs *ConversationStore) GetMessages(ctx context.Context, sessionID string) ([]memory.Message, error) {
	vals, err := cs.client.LRange(ctx, cs.convKey(sessionID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, rds.Nil) {
			return []memory.Message{}, nil
		}
		return nil, err
	}
	msgs := make([]memory.Message, 0, len(vals))
	for _, v := range vals {
		var m memory.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (cs *ConversationStore) ClearSession(ctx context.Context, sessionID string) error {
	return cs.client.Del(ctx, cs.convKey(sessionID)).Err()
}

func (cs *ConversationStore) Sessions(ctx context.Context) ([]string, error) {
	base := cs.base()
	var (
		cursor uint64
		ids    []string
	)
	for {
		ks, cur, err := cs.client.Scan(ctx, cursor, base+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range ks {
			ids = append(ids, strings.TrimPrefix(k, base))
		}
		if cur == 0 {
			break
		}
		cursor = cur
	}
	sort.Strings(ids)
	return ids, nil
}

var _ memory.ConversationStore = (*ConversationStore)(nil)
