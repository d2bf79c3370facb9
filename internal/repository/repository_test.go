package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingmentor/wingmentor-api/internal/docstore"
	"github.com/wingmentor/wingmentor-api/internal/docstore/memory"
	"github.com/wingmentor/wingmentor-api/internal/models"
	pkgerrors "github.com/wingmentor/wingmentor-api/pkg/errors"
)

func TestDecodeLog_Defaults(t *testing.T) {
	log := decodeLog(docstore.Document{ID: "l1", Data: map[string]any{
		"mentorId":    "M1",
		"menteeId":    7.0,
		"hoursLogged": 2.5,
		"status":      "archived",
		"createdAt":   "2024-03-01T12:00:00.000000000Z",
	}})

	assert.Equal(t, "l1", log.ID)
	assert.Equal(t, "M1", log.MentorID)
	assert.Empty(t, log.MenteeID)
	assert.Equal(t, 2.5, log.HoursLogged)
	assert.Equal(t, models.LogStatusPending, log.Status)
	assert.Equal(t, models.DefaultProgram, log.Program)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), log.CreatedAt)
}

func TestLogRepository_GetMissing(t *testing.T) {
	_, err := NewLogRepository(memory.New()).Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
}

func TestLogRepository_FindPendingMatches(t *testing.T) {
	ctx := context.Background()
	repo := NewLogRepository(memory.New())

	newLog := func(mentor, mentee string, hours float64) string {
		id, err := repo.Create(ctx, &models.NewMentorshipLog{
			MentorID: mentor, MenteeID: mentee, MenteeEmail: "e@example.com",
			HoursLogged: hours, SessionDescription: "x", Program: models.DefaultProgram,
		})
		require.NoError(t, err)
		return id
	}
	a := newLog("M1", "E1", 1.5)
	b := newLog("M1", "E1", 1.5)
	newLog("M1", "E1", 2)
	c := newLog("M1", "E1", 1.5)
	require.NoError(t, repo.MarkVerified(ctx, c))

	matches, err := repo.FindPendingMatches(ctx, models.PairingKey{MentorID: "M1", MenteeID: "E1", HoursLogged: 1.5})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, a, matches[0].ID)
	assert.Equal(t, b, matches[1].ID)
}

func TestUserRepository_GetMissingIsNil(t *testing.T) {
	user, err := NewUserRepository(memory.New()).Get(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestChatRepository_CreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewChatRepository(memory.New())

	created, err := repo.CreateIfAbsent(ctx, "a_b", []string{"a", "b"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfAbsent(ctx, "a_b", []string{"b", "a"})
	require.NoError(t, err)
	assert.False(t, created)

	chat, err := repo.Get(ctx, "a_b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, chat.Participants)
}

func TestChatRepository_TouchMissingChat(t *testing.T) {
	err := NewChatRepository(memory.New()).TouchLastMessage(context.Background(), "a_b", "hi")
	assert.True(t, errors.Is(err, pkgerrors.ErrPersistence))
	assert.True(t, errors.Is(err, docstore.ErrNotFound))
}

func TestDecodeMessagesOldestFirst(t *testing.T) {
	docs := []docstore.Document{
		{ID: "m3", Data: map[string]any{"text": "third"}},
		{ID: "m2", Data: map[string]any{"text": "second"}},
		{ID: "m1", Data: map[string]any{"text": "first"}},
	}
	messages := decodeMessagesOldestFirst(docs)
	require.Len(t, messages, 3)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "third", messages[2].Text)
}
