package repository

import (
	"context"

	"github.com/wingmentor/wingmentor-api/internal/docstore"
	"github.com/wingmentor/wingmentor-api/internal/models"
)

// LogStore is the log persistence the log service depends on
type LogStore interface {
	WithTx(tx docstore.Tx) LogStore
	Create(ctx context.Context, log *models.NewMentorshipLog) (string, error)
	Get(ctx context.Context, id string) (*models.MentorshipLog, error)
	FindPendingMatches(ctx context.Context, key models.PairingKey) ([]models.MentorshipLog, error)
	ListByMentee(ctx context.Context, uid string) ([]models.MentorshipLog, error)
	ListByMentor(ctx context.Context, uid string) ([]models.MentorshipLog, error)
	ListPending(ctx context.Context) ([]models.MentorshipLog, error)
	MarkVerified(ctx context.Context, id string) error
}

// UserStore is the profile persistence of the directory and enrollment services
type UserStore interface {
	Get(ctx context.Context, uid string) (*models.UserRecord, error)
	Find(ctx context.Context, region, flightSchool string) ([]models.UserRecord, error)
	Merge(ctx context.Context, uid string, patch map[string]any) error
	Update(ctx context.Context, uid string, patch map[string]any) error
}

// ChatStore is the chat persistence of the chat service
type ChatStore interface {
	Get(ctx context.Context, chatID string) (*models.Chat, error)
	CreateIfAbsent(ctx context.Context, chatID string, participants []string) (bool, error)
	AddMessage(ctx context.Context, chatID, senderID, text string) (string, error)
	TouchLastMessage(ctx context.Context, chatID, text string) error
	RecentMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error)
	SubscribeRecentMessages(ctx context.Context, chatID string, fn func([]models.ChatMessage)) (docstore.Unsubscribe, error)
}

var (
	_ LogStore  = (*LogRepository)(nil)
	_ UserStore = (*UserRepository)(nil)
	_ ChatStore = (*ChatRepository)(nil)
)
