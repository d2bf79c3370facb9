package models

import (
	"sort"
	"strings"
	"time"
)

// Stored field names of chats and messages
const (
	ChatFieldParticipants = "participants"
	ChatFieldCreatedAt    = "createdAt"
	ChatFieldUpdatedAt    = "updatedAt"
	ChatFieldLastMessage  = "lastMessage"

	MessageFieldSenderID  = "senderId"
	MessageFieldText      = "text"
	MessageFieldTimestamp = "timestamp"
)

// MaxMessageLength bounds message text after sanitizing
const MaxMessageLength = 4000

// MessageWindow is the number of most recent messages a subscription shows
const MessageWindow = 50

// ChatID derives the conversation id of two users independent of argument order
func ChatID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// MessagesCollection is the sub-collection holding a chat's messages
func MessagesCollection(chatID string) string {
	return "chats/" + chatID + "/messages"
}

// Chat is a two-party conversation
type Chat struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastMessage  *string   `json:"lastMessage"`
}

// HasParticipant reports whether uid takes part in the chat
func (c *Chat) HasParticipant(uid string) bool {
	for _, p := range c.Participants {
		if p == uid {
			return true
		}
	}
	return false
}

// ChatMessage is one message of a chat
type ChatMessage struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// OpenChatRequest starts or resumes a conversation with a peer
type OpenChatRequest struct {
	PeerID string `json:"peerId" binding:"required,max=128"`
}

// OpenChatResponse carries the chat id
type OpenChatResponse struct {
	ChatID string `json:"chatId"`
}

// SendMessageRequest is the message payload
type SendMessageRequest struct {
	Text string `json:"text" binding:"required,max=8000"`
}

// MessagesSnapshot is pushed to live subscribers on every change
type MessagesSnapshot struct {
	Type     string        `json:"type"`
	ChatID   string        `json:"chatId"`
	Messages []ChatMessage `json:"messages"`
}
