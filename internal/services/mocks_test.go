package services_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/wingmentor/wingmentor-api/internal/docstore"
	"github.com/wingmentor/wingmentor-api/internal/models"
)

// MockUserStore is a mock implementation of repository.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Get(ctx context.Context, uid string) (*models.UserRecord, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserRecord), args.Error(1)
}

func (m *MockUserStore) Find(ctx context.Context, region, flightSchool string) ([]models.UserRecord, error) {
	args := m.Called(ctx, region, flightSchool)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserRecord), args.Error(1)
}

func (m *MockUserStore) Merge(ctx context.Context, uid string, patch map[string]any) error {
	args := m.Called(ctx, uid, patch)
	return args.Error(0)
}

func (m *MockUserStore) Update(ctx context.Context, uid string, patch map[string]any) error {
	args := m.Called(ctx, uid, patch)
	return args.Error(0)
}

// MockChatStore is a mock implementation of repository.ChatStore
type MockChatStore struct {
	mock.Mock
}

func (m *MockChatStore) Get(ctx context.Context, chatID string) (*models.Chat, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockChatStore) CreateIfAbsent(ctx context.Context, chatID string, participants []string) (bool, error) {
	args := m.Called(ctx, chatID, participants)
	return args.Bool(0), args.Error(1)
}

func (m *MockChatStore) AddMessage(ctx context.Context, chatID, senderID, text string) (string, error) {
	args := m.Called(ctx, chatID, senderID, text)
	return args.String(0), args.Error(1)
}

func (m *MockChatStore) TouchLastMessage(ctx context.Context, chatID, text string) error {
	args := m.Called(ctx, chatID, text)
	return args.Error(0)
}

func (m *MockChatStore) RecentMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

func (m *MockChatStore) SubscribeRecentMessages(ctx context.Context, chatID string, fn func([]models.ChatMessage)) (docstore.Unsubscribe, error) {
	args := m.Called(ctx, chatID, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(docstore.Unsubscribe), args.Error(1)
}
