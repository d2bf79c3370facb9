package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wingmentor/wingmentor-api/internal/identity"
	"github.com/wingmentor/wingmentor-api/pkg/jwt"
	"github.com/wingmentor/wingmentor-api/pkg/logger"
	"go.uber.org/zap"
)

const (
	// UserContextKey holds the *identity.User of an authenticated request
	UserContextKey = "wingmentor_user"

	// TokenContextKey holds the raw bearer token
	TokenContextKey = "wingmentor_token"
)

// Authenticator is the part of the identity provider the middleware needs
type Authenticator interface {
	Authenticate(token string) (*identity.User, error)
}

// AuthOptions tune where the token is read from
type AuthOptions struct {
	// AllowQueryToken accepts ?token= for browser WebSocket handshakes,
	// which cannot set headers
	AllowQueryToken bool
}

// SessionAuthMiddleware authenticates the bearer token and stores the user
// on both the gin context and the request context
func SessionAuthMiddleware(auth Authenticator, opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" && opts.AllowQueryToken {
			token = c.Query("token")
		}
		if token == "" {
			_ = c.Error(fmt.Errorf("missing bearer token")) //nolint:errcheck
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		user, err := auth.Authenticate(token)
		if err != nil {
			_ = c.Error(fmt.Errorf("invalid session token: %w", err)) //nolint:errcheck
			logger.Debug("Rejected session token",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
				zap.Error(err))

			message := "Unauthorized"
			switch {
			case errors.Is(err, jwt.ErrExpiredToken):
				message = "Session expired"
			case errors.Is(err, identity.ErrRevoked):
				message = "Session ended"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
			return
		}

		c.Set(UserContextKey, user)
		c.Set(TokenContextKey, token)
		c.Request = c.Request.WithContext(identity.WithUser(c.Request.Context(), user))
		c.Next()
	}
}

// CurrentUser returns the authenticated user or nil
func CurrentUser(c *gin.Context) *identity.User {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return nil
	}
	user, _ := value.(*identity.User)
	return user
}

// CurrentToken returns the raw bearer token of the request
func CurrentToken(c *gin.Context) string {
	return c.GetString(TokenContextKey)
}

func bearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
