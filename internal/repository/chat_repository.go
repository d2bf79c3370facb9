package repository

import (
	"context"
	"errors"

	"github.com/wingmentor/wingmentor-api/internal/docstore"
	"github.com/wingmentor/wingmentor-api/internal/models"
	pkgerrors "github.com/wingmentor/wingmentor-api/pkg/errors"
)

// ChatsCollection holds chat headers; messages live in sub-collections
const ChatsCollection = "chats"

// ChatRepository reads and writes chats and their messages
type ChatRepository struct {
	store docstore.Store
}

// NewChatRepository creates a chat repository over the store
func NewChatRepository(store docstore.Store) *ChatRepository {
	return &ChatRepository{store: store}
}

// Get loads a chat; (nil, nil) when absent
func (r *ChatRepository) Get(ctx context.Context, chatID string) (*models.Chat, error) {
	doc, err := r.store.Get(ctx, ChatsCollection, chatID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Persistence("get", ChatsCollection, err)
	}
	chat := decodeChat(*doc)
	return &chat, nil
}

// CreateIfAbsent creates the chat header. It reports false when another
// caller created it first.
func (r *ChatRepository) CreateIfAbsent(ctx context.Context, chatID string, participants []string) (bool, error) {
	err := r.store.Create(ctx, ChatsCollection, chatID, map[string]any{
		models.ChatFieldParticipants: participants,
		models.ChatFieldCreatedAt:    docstore.ServerTimestamp,
		models.ChatFieldUpdatedAt:    docstore.ServerTimestamp,
		models.ChatFieldLastMessage:  nil,
	})
	if err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return false, nil
		}
		return false, pkgerrors.Persistence("create", ChatsCollection, err)
	}
	return true, nil
}

// AddMessage appends a message stamped with the server time
func (r *ChatRepository) AddMessage(ctx context.Context, chatID, senderID, text string) (string, error) {
	collection := models.MessagesCollection(chatID)
	id, err := r.store.Insert(ctx, collection, map[string]any{
		models.MessageFieldSenderID:  senderID,
		models.MessageFieldText:      text,
		models.MessageFieldTimestamp: docstore.ServerTimestamp,
	})
	if err != nil {
		return "", pkgerrors.Persistence("insert", collection, err)
	}
	return id, nil
}

// TouchLastMessage records the latest message text on the chat header
func (r *ChatRepository) TouchLastMessage(ctx context.Context, chatID, text string) error {
	err := r.store.Update(ctx, ChatsCollection, chatID, map[string]any{
		models.ChatFieldLastMessage: text,
		models.ChatFieldUpdatedAt:   docstore.ServerTimestamp,
	})
	if err != nil {
		return pkgerrors.Persistence("update", ChatsCollection, err)
	}
	return nil
}

// recentMessages selects the newest window of a chat, newest first
func recentMessages(chatID string) docstore.Query {
	return docstore.From(models.MessagesCollection(chatID)).
		OrderBy(models.MessageFieldTimestamp, docstore.Desc).
		Take(models.MessageWindow)
}

// RecentMessages returns the newest window of messages, oldest first
func (r *ChatRepository) RecentMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	q := recentMessages(chatID)
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, pkgerrors.Persistence("query", q.Collection, err)
	}
	return decodeMessagesOldestFirst(docs), nil
}

// SubscribeRecentMessages streams the newest window, oldest first, on every change
func (r *ChatRepository) SubscribeRecentMessages(ctx context.Context, chatID string, fn func([]models.ChatMessage)) (docstore.Unsubscribe, error) {
	q := recentMessages(chatID)
	unsub, err := r.store.Subscribe(ctx, q, func(docs []docstore.Document) {
		fn(decodeMessagesOldestFirst(docs))
	})
	if err != nil {
		return nil, pkgerrors.Persistence("subscribe", q.Collection, err)
	}
	return unsub, nil
}

func decodeMessagesOldestFirst(docs []docstore.Document) []models.ChatMessage {
	messages := make([]models.ChatMessage, len(docs))
	for i, doc := range docs {
		messages[len(docs)-1-i] = models.ChatMessage{
			ID:        doc.ID,
			SenderID:  stringField(doc.Data, models.MessageFieldSenderID),
			Text:      stringField(doc.Data, models.MessageFieldText),
			Timestamp: timeField(doc.Data, models.MessageFieldTimestamp),
		}
	}
	return messages
}

func decodeChat(doc docstore.Document) models.Chat {
	d := doc.Data
	return models.Chat{
		ID:           doc.ID,
		Participants: stringSliceField(d, models.ChatFieldParticipants),
		CreatedAt:    timeField(d, models.ChatFieldCreatedAt),
		UpdatedAt:    timeField(d, models.ChatFieldUpdatedAt),
		LastMessage:  optionalStringField(d, models.ChatFieldLastMessage),
	}
}
