package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/liquidtasks/core/internal/domain/entities"
	"github.com/liquidtasks/core/internal/infrastructure/logger"
	"github.com/liquidtasks/core/internal/ports"
)

const (
	chatMessagesKey = "chat:messages"
	chatEventsChan  = "chat:events"
)

// ChatStore is the append-only community chat on Redis: a sorted set scored
// by creation time, with a pub/sub channel driving live subscriptions.
type ChatStore struct {
	client *redis.Client
	limit  int
	logger *logger.Logger
}

var _ ports.ChatStore = (*ChatStore)(nil)

// NewChatStore creates the chat store bounded to historyLimit messages per
// subscription delivery.
func NewChatStore(client *redis.Client, historyLimit int, log *logger.Logger) *ChatStore {
	return &ChatStore{
		client: client,
		limit:  historyLimit,
		logger: log.WithComponent("remote_chat"),
	}
}

// Append stores the message and notifies subscribers.
func (s *ChatStore) Append(ctx context.Context, msg entities.ChatMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := s.client.ZAdd(ctx, chatMessagesKey, redis.Z{
		Score:  float64(msg.CreatedAt),
		Member: payload,
	}).Err(); err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	if err := s.client.Publish(ctx, chatEventsChan, msg.ID).Err(); err != nil {
		// Message is stored; a lost notification only delays delivery until
		// the next event.
		s.logger.Warnw("Chat publish failed", "error", err)
	}
	return nil
}

// Recent returns the most recent messages ascending by creation time. A
// non-positive limit yields nothing; ZRevRange would read the whole set.
func (s *ChatStore) Recent(ctx context.Context, limit int) ([]entities.ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}

	raw, err := s.client.ZRevRange(ctx, chatMessagesKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read chat history: %w", err)
	}

	// ZRevRange is newest first; reverse into ascending order.
	msgs := make([]entities.ChatMessage, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var msg entities.ChatMessage
		if err := json.Unmarshal([]byte(raw[i]), &msg); err != nil {
			s.logger.Warnw("Skipping malformed chat entry", "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Subscribe delivers the bounded history immediately and again after every
// appended message, until closed. Errors stop the stream; the consumer keeps
// its last known messages.
func (s *ChatStore) Subscribe(ctx context.Context) (ports.ChatSubscription, error) {
	pubsub := s.client.Subscribe(ctx, chatEventsChan)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("chat subscribe: %w", err)
	}

	sub := &chatSubscription{
		snapshots: make(chan []entities.ChatMessage, 1),
		done:      make(chan struct{}),
		pubsub:    pubsub,
	}

	go s.runChat(ctx, pubsub, sub)

	return sub, nil
}

func (s *ChatStore) runChat(ctx context.Context, pubsub *redis.PubSub, sub *chatSubscription) {
	defer close(sub.snapshots)

	deliver := func() bool {
		msgs, err := s.Recent(ctx, s.limit)
		if err != nil {
			s.logger.Warnw("Chat subscription query failed, stream stops", "error", err)
			return false
		}
		select {
		case sub.snapshots <- msgs:
		case <-sub.done:
			return false
		case <-ctx.Done():
			return false
		}
		return true
	}

	if !deliver() {
		return
	}

	events := pubsub.Channel()
	for {
		select {
		case <-sub.done:
			return
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			if !deliver() {
				return
			}
		}
	}
}

type chatSubscription struct {
	snapshots chan []entities.ChatMessage
	done      chan struct{}
	pubsub    *redis.PubSub
	closeOnce sync.Once
}

func (s *chatSubscription) Snapshots() <-chan []entities.ChatMessage {
	return s.snapshots
}

func (s *chatSubscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.pubsub.Close()
	})
}
