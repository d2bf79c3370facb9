package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/wingmentor/wingmentor-api/internal/middleware"
)

const (
	maxJSONBodySize = 64 * 1024
	maxLogBodySize  = 16 * 1024
)

// Routes bundles the handlers mounted under /api/v1
type Routes struct {
	Logs       *LogHandler
	Directory  *DirectoryHandler
	Chats      *ChatHandler
	Enrollment *EnrollmentHandler
	Auth       *AuthHandler
}

// RegisterAPIRoutes mounts the authenticated API on group. The rate limiter
// runs after authentication so it keys on the user.
func RegisterAPIRoutes(group *gin.RouterGroup, routes Routes, auth middleware.Authenticator, limiter *middleware.RateLimiter) {
	session := group.Group("",
		middleware.SessionAuthMiddleware(auth, middleware.AuthOptions{}),
		limiter.Middleware(),
	)

	session.POST("/logs", middleware.BodySizeLimitMiddleware(maxLogBodySize), routes.Logs.SubmitLog)
	session.GET("/logs", routes.Logs.GetLogs)

	session.GET("/users", routes.Directory.SearchUsers)
	session.GET("/users/:id", routes.Directory.GetUser)

	session.POST("/chats", middleware.BodySizeLimitMiddleware(maxJSONBodySize), routes.Chats.OpenChat)
	session.POST("/chats/:chatId/messages", middleware.BodySizeLimitMiddleware(maxJSONBodySize), routes.Chats.SendMessage)
	session.GET("/chats/:chatId/messages", routes.Chats.GetMessages)

	session.GET("/enrollment", routes.Enrollment.GetStatus)
	session.POST("/enrollment", middleware.BodySizeLimitMiddleware(maxJSONBodySize), routes.Enrollment.Enroll)
	session.POST("/enrollment/complete", middleware.BodySizeLimitMiddleware(maxJSONBodySize), routes.Enrollment.Complete)

	session.GET("/auth/me", routes.Auth.Me)
	session.POST("/auth/logout", routes.Auth.Logout)

	// Browsers cannot set headers on a WebSocket handshake
	group.GET("/chats/:chatId/ws",
		middleware.SessionAuthMiddleware(auth, middleware.AuthOptions{AllowQueryToken: true}),
		limiter.Middleware(),
		routes.Chats.Stream,
	)
}
