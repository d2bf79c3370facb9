package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/wingmentor/wingmentor-api/internal/middleware"
	"github.com/wingmentor/wingmentor-api/internal/models"
	"github.com/wingmentor/wingmentor-api/internal/services"
	"github.com/wingmentor/wingmentor-api/internal/ws"
	pkgerrors "github.com/wingmentor/wingmentor-api/pkg/errors"
	"github.com/wingmentor/wingmentor-api/pkg/logger"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// ChatHandler serves chat threads and their live message stream
type ChatHandler struct {
	service        services.ChatServiceInterface
	hub            *ws.Hub
	originPatterns []string
}

// NewChatHandler creates a new ChatHandler. allowedOrigins are the CORS
// origins; their hosts are accepted as WebSocket origins.
func NewChatHandler(service services.ChatServiceInterface, hub *ws.Hub, allowedOrigins []string) *ChatHandler {
	return &ChatHandler{
		service:        service,
		hub:            hub,
		originPatterns: originHosts(allowedOrigins),
	}
}

func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, origin := range origins {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}

// OpenChat handles POST /api/v1/chats
func (h *ChatHandler) OpenChat(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var req models.OpenChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	chatID, err := h.service.GetOrCreateChat(c.Request.Context(), user.ID, req.PeerID)
	if err != nil {
		respondServiceError(c, err, "Failed to open chat")
		return
	}

	c.JSON(http.StatusOK, models.OpenChatResponse{ChatID: chatID})
}

// SendMessage handles POST /api/v1/chats/:chatId/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	user, chatID, ok := h.requireParticipant(c)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	id, err := h.service.SendMessage(c.Request.Context(), chatID, user, req.Text)
	if err != nil && id == "" {
		respondServiceError(c, err, "Failed to send message")
		return
	}
	// The message is stored even when the chat summary could not be updated
	attachError(c, err)

	c.JSON(http.StatusCreated, gin.H{"success": true, "id": id})
}

// GetMessages handles GET /api/v1/chats/:chatId/messages
func (h *ChatHandler) GetMessages(c *gin.Context) {
	_, chatID, ok := h.requireParticipant(c)
	if !ok {
		return
	}

	messages, err := h.service.RecentMessages(c.Request.Context(), chatID)
	if err != nil {
		attachError(c, err)
		logger.Warn("Message read degraded to empty result", zap.Error(err), zap.String("chat_id", chatID))
		messages = nil
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}

	c.JSON(http.StatusOK, models.MessagesSnapshot{Type: "messages", ChatID: chatID, Messages: messages})
}

// Stream handles GET /api/v1/chats/:chatId/ws. It pushes a snapshot of the
// recent messages on connect and after every change until the client goes
// away or its session ends.
func (h *ChatHandler) Stream(c *gin.Context) {
	user, chatID, ok := h.requireParticipant(c)
	if !ok {
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		// Accept has already written the response
		attachError(c, err)
		return
	}

	// Push-only: reading just processes control frames
	readCtx := conn.CloseRead(context.Background())

	client := h.hub.Register(user, chatID, conn)
	defer h.hub.Remove(client)

	unsubscribe, err := h.service.SubscribeToMessages(readCtx, chatID, func(messages []models.ChatMessage) {
		client.Push(models.MessagesSnapshot{Type: "messages", ChatID: chatID, Messages: messages})
	})
	if err != nil {
		logger.Error("Failed to start message stream", zap.Error(err), zap.String("chat_id", chatID))
		return
	}
	defer unsubscribe()

	logger.Debug("Message stream opened", zap.String("chat_id", chatID), zap.String("uid", user))

	select {
	case <-readCtx.Done():
	case <-client.Done():
	case <-c.Request.Context().Done():
	}
}

func (h *ChatHandler) requireParticipant(c *gin.Context) (string, string, bool) {
	user := middleware.CurrentUser(c)
	if user == nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return "", "", false
	}

	chatID := c.Param("chatId")
	member, err := h.service.IsParticipant(c.Request.Context(), chatID, user.ID)
	if err != nil {
		respondServiceError(c, err, "Failed to load chat")
		return "", "", false
	}
	if !member {
		respondServiceError(c, pkgerrors.AccessDeniedError("not a participant of chat "+chatID), "Failed to load chat")
		return "", "", false
	}
	return user.ID, chatID, true
}
