package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wingmentor/wingmentor-api/internal/models"
	"github.com/wingmentor/wingmentor-api/internal/services"
	"github.com/wingmentor/wingmentor-api/pkg/logger"
	"go.uber.org/zap"
)

// DirectoryHandler serves the pilot directory
type DirectoryHandler struct {
	service services.DirectoryServiceInterface
}

// NewDirectoryHandler creates a new DirectoryHandler
func NewDirectoryHandler(service services.DirectoryServiceInterface) *DirectoryHandler {
	return &DirectoryHandler{service: service}
}

// SearchUsers handles GET /api/v1/users?region=&flightSchool=&q=.
// A failed read degrades to an empty list.
func (h *DirectoryHandler) SearchUsers(c *gin.Context) {
	var filter models.UserSearchFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindingError(c, err)
		return
	}

	users, err := h.service.SearchUsers(c.Request.Context(), filter)
	if err != nil {
		attachError(c, err)
		logger.Warn("Directory search degraded to empty result", zap.Error(err))
		users = nil
	}
	if users == nil {
		users = []models.UserProfile{}
	}

	c.JSON(http.StatusOK, models.UsersResponse{Users: users, Total: len(users)})
}

// GetUser handles GET /api/v1/users/:id
func (h *DirectoryHandler) GetUser(c *gin.Context) {
	profile, err := h.service.GetUserProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to fetch user")
		return
	}
	if profile == nil {
		respondError(c, http.StatusNotFound, "User not found", nil)
		return
	}

	c.JSON(http.StatusOK, profile)
}
