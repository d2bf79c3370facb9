package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wingmentor/wingmentor-api/internal/middleware"
)

// SignOuter revokes a session token
type SignOuter interface {
	SignOut(token string) error
}

// AuthHandler serves session endpoints. Tokens are issued elsewhere.
type AuthHandler struct {
	sessions SignOuter
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(sessions SignOuter) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Logout handles POST /api/v1/auth/logout. Live chat connections of the
// user are closed by the auth state listener.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.SignOut(middleware.CurrentToken(c)); err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	c.JSON(http.StatusOK, user)
}
