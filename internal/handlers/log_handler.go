package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wingmentor/wingmentor-api/internal/middleware"
	"github.com/wingmentor/wingmentor-api/internal/models"
	"github.com/wingmentor/wingmentor-api/internal/services"
	pkgerrors "github.com/wingmentor/wingmentor-api/pkg/errors"
)

// LogHandler serves the mentorship logbook
type LogHandler struct {
	service services.LogServiceInterface
}

// NewLogHandler creates a new LogHandler
func NewLogHandler(service services.LogServiceInterface) *LogHandler {
	return &LogHandler{service: service}
}

// SubmitLog handles POST /api/v1/logs.
// The caller must be one of the two parties of the session.
func (h *LogHandler) SubmitLog(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var req models.NewMentorshipLog
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	if req.MentorID != user.ID && req.MenteeID != user.ID {
		respondError(c, http.StatusForbidden, "You can only log sessions you took part in",
			pkgerrors.AccessDeniedError("caller is neither mentor nor mentee"))
		return
	}

	id, err := h.service.SubmitLog(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err, "Failed to submit log")
		return
	}

	c.JSON(http.StatusCreated, models.SubmitLogResponse{Success: true, ID: id})
}

// GetLogs handles GET /api/v1/logs
func (h *LogHandler) GetLogs(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	logs, err := h.service.GetUserLogs(c.Request.Context(), user.ID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch logs")
		return
	}
	if logs == nil {
		logs = []models.MentorshipLog{}
	}

	c.JSON(http.StatusOK, models.LogsResponse{Logs: logs, Total: len(logs)})
}
