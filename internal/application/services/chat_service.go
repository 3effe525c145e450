package services

import (
	"context"
	"fmt"

	"github.com/liquidtasks/core/internal/domain/entities"
	"github.com/liquidtasks/core/internal/infrastructure/logger"
	"github.com/liquidtasks/core/internal/infrastructure/metrics"
	"github.com/liquidtasks/core/internal/ports"
)

// ChatService handles the append-only community chat. Messages are never
// edited or deleted; history is bounded to the most recent entries.
type ChatService struct {
	chat    ports.ChatStore
	limit   int
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewChatService creates a new chat service bounded to historyLimit messages.
func NewChatService(chat ports.ChatStore, historyLimit int, log *logger.Logger, m *metrics.Metrics) *ChatService {
	return &ChatService{
		chat:    chat,
		limit:   historyLimit,
		logger:  log.WithComponent("chat"),
		metrics: m,
	}
}

// Send trims and appends one message stamped with the sender's identity.
// Empty text is rejected without touching the store.
func (s *ChatService) Send(ctx context.Context, text string, sender entities.Identity) (entities.ChatMessage, error) {
	msg, err := entities.NewChatMessage(text, sender)
	if err != nil {
		return entities.ChatMessage{}, err
	}

	if err := s.chat.Append(ctx, msg); err != nil {
		return entities.ChatMessage{}, fmt.Errorf("append message: %w", err)
	}

	s.metrics.ChatMessagesTotal.Inc()
	s.logger.Debugw("Message sent", "sender_id", msg.SenderID)
	return msg, nil
}

// History returns the most recent messages, ascending by creation time.
func (s *ChatService) History(ctx context.Context) ([]entities.ChatMessage, error) {
	msgs, err := s.chat.Recent(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("chat history: %w", err)
	}
	return msgs, nil
}

// Subscribe opens a live chat stream. The caller owns the subscription and
// must close it.
func (s *ChatService) Subscribe(ctx context.Context) (ports.ChatSubscription, error) {
	sub, err := s.chat.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("chat subscribe: %w", err)
	}
	return sub, nil
}
