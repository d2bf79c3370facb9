package services

import (
	"context"

	"github.com/wingmentor/wingmentor-api/internal/docstore"
	"github.com/wingmentor/wingmentor-api/internal/models"
)

// LogServiceInterface defines the mentorship log operations
type LogServiceInterface interface {
	SubmitLog(ctx context.Context, entry *models.NewMentorshipLog) (string, error)
	Reconcile(ctx context.Context, mentorID, menteeID string, hours float64) (int, error)
	ReconcileAllPending(ctx context.Context) (int, int, error)
	GetUserLogs(ctx context.Context, uid string) ([]models.MentorshipLog, error)
}

// DirectoryServiceInterface defines the directory operations
type DirectoryServiceInterface interface {
	SearchUsers(ctx context.Context, filter models.UserSearchFilter) ([]models.UserProfile, error)
	GetUserProfile(ctx context.Context, uid string) (*models.UserProfile, error)
}

// ChatServiceInterface defines the chat operations
type ChatServiceInterface interface {
	GetOrCreateChat(ctx context.Context, a, b string) (string, error)
	SendMessage(ctx context.Context, chatID, senderID, text string) (string, error)
	SubscribeToMessages(ctx context.Context, chatID string, fn func([]models.ChatMessage)) (docstore.Unsubscribe, error)
	RecentMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error)
	IsParticipant(ctx context.Context, chatID, uid string) (bool, error)
}

// EnrollmentServiceInterface defines the enrollment operations
type EnrollmentServiceInterface interface {
	EnrollInProgram(ctx context.Context, uid, program string) error
	CompleteEnrollment(ctx context.Context, uid string, responses map[string]any) error
	GetEnrollmentStatus(ctx context.Context, uid string) ([]string, error)
	ResetEnrollment(ctx context.Context, uid string) error
}

// Ensure services implement their interfaces
var (
	_ LogServiceInterface        = (*LogService)(nil)
	_ DirectoryServiceInterface  = (*DirectoryService)(nil)
	_ ChatServiceInterface       = (*ChatService)(nil)
	_ EnrollmentServiceInterface = (*EnrollmentService)(nil)
)
