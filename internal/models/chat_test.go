package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatID_Deterministic(t *testing.T) {
	assert.Equal(t, "alice_bob", ChatID("alice", "bob"))
	assert.Equal(t, "alice_bob", ChatID("bob", "alice"))
	assert.Equal(t, ChatID("u2", "U1"), ChatID("U1", "u2"))
}

func TestMessagesCollection(t *testing.T) {
	assert.Equal(t, "chats/alice_bob/messages", MessagesCollection("alice_bob"))
}

func TestChat_HasParticipant(t *testing.T) {
	c := Chat{Participants: []string{"alice", "bob"}}
	assert.True(t, c.HasParticipant("bob"))
	assert.False(t, c.HasParticipant("carol"))
}
