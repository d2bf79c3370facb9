package services

import (
	"context"
	"unicode/utf8"

	"github.com/wingmentor/wingmentor-api/internal/docstore"
	"github.com/wingmentor/wingmentor-api/internal/models"
	"github.com/wingmentor/wingmentor-api/internal/repository"
	pkgerrors "github.com/wingmentor/wingmentor-api/pkg/errors"
	"github.com/wingmentor/wingmentor-api/pkg/logger"
	"github.com/wingmentor/wingmentor-api/pkg/metrics"
	"github.com/wingmentor/wingmentor-api/pkg/sanitize"
	"go.uber.org/zap"
)

// ChatService manages two-party chats and their message streams
type ChatService struct {
	chats repository.ChatStore
}

// NewChatService creates a chat service
func NewChatService(chats repository.ChatStore) *ChatService {
	return &ChatService{chats: chats}
}

// GetOrCreateChat resolves the chat of a and b, creating it on first use.
// The id does not depend on argument order.
func (s *ChatService) GetOrCreateChat(ctx context.Context, a, b string) (string, error) {
	if err := requireID("userA", a); err != nil {
		return "", err
	}
	if err := requireID("userB", b); err != nil {
		return "", err
	}
	if a == b {
		return "", pkgerrors.InvalidInputError("userB", "must differ from userA")
	}

	chatID := models.ChatID(a, b)
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return "", err
	}
	if chat != nil {
		return chatID, nil
	}

	created, err := s.chats.CreateIfAbsent(ctx, chatID, []string{a, b})
	if err != nil {
		logger.Error("Failed to create chat", zap.Error(err), zap.String("chat_id", chatID))
		return "", err
	}
	if created {
		metrics.ChatsCreated.Inc()
		logger.Info("Chat created", zap.String("chat_id", chatID))
	}
	return chatID, nil
}

// SendMessage appends a message and refreshes the chat summary. The two
// writes are independent; a failed summary update leaves the message stored.
func (s *ChatService) SendMessage(ctx context.Context, chatID, senderID, text string) (string, error) {
	if err := requireID("chatId", chatID); err != nil {
		return "", err
	}
	if err := requireID("senderId", senderID); err != nil {
		return "", err
	}
	clean := sanitize.Text(text)
	if clean == "" {
		metrics.ChatMessages.WithLabelValues("invalid").Inc()
		return "", pkgerrors.InvalidInputError("text", "is required")
	}
	if utf8.RuneCountInString(clean) > models.MaxMessageLength {
		metrics.ChatMessages.WithLabelValues("invalid").Inc()
		return "", pkgerrors.InvalidInputError("text", "is too long")
	}

	id, err := s.chats.AddMessage(ctx, chatID, senderID, clean)
	if err != nil {
		metrics.ChatMessages.WithLabelValues("error").Inc()
		logger.Error("Failed to send message", zap.Error(err), zap.String("chat_id", chatID))
		return "", err
	}
	if err := s.chats.TouchLastMessage(ctx, chatID, clean); err != nil {
		metrics.ChatMessages.WithLabelValues("error").Inc()
		logger.Error("Failed to update chat summary", zap.Error(err),
			zap.String("chat_id", chatID),
			zap.String("message_id", id))
		return id, err
	}

	metrics.ChatMessages.WithLabelValues("success").Inc()
	return id, nil
}

// SubscribeToMessages delivers the most recent messages of the chat,
// oldest first, now and after every change. The caller must unsubscribe.
func (s *ChatService) SubscribeToMessages(ctx context.Context, chatID string, fn func([]models.ChatMessage)) (docstore.Unsubscribe, error) {
	if err := requireID("chatId", chatID); err != nil {
		return nil, err
	}
	unsub, err := s.chats.SubscribeRecentMessages(ctx, chatID, fn)
	if err != nil {
		logger.Error("Failed to subscribe to messages", zap.Error(err), zap.String("chat_id", chatID))
		return nil, err
	}
	return unsub, nil
}

// RecentMessages returns the current window of messages, oldest first
func (s *ChatService) RecentMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	if err := requireID("chatId", chatID); err != nil {
		return nil, err
	}
	return s.chats.RecentMessages(ctx, chatID)
}

// IsParticipant reports whether uid belongs to the chat; false when the chat
// does not exist
func (s *ChatService) IsParticipant(ctx context.Context, chatID, uid string) (bool, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return false, err
	}
	return chat != nil && chat.HasParticipant(uid), nil
}
