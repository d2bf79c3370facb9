package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingmentor/wingmentor-api/internal/identity"
	"github.com/wingmentor/wingmentor-api/pkg/jwt"
)

func init() {
	// Set Gin to test mode
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(t *testing.T, opts AuthOptions) (*gin.Engine, *identity.Provider, *jwt.TokenManager) {
	t.Helper()
	tm := jwt.NewTokenManager("0123456789abcdef0123456789abcdef", "wingmentor-auth", time.Hour)
	provider := identity.NewProvider(tm, time.Hour)

	router := gin.New()
	router.Use(SessionAuthMiddleware(provider, opts))
	router.GET("/me", func(c *gin.Context) {
		fromCtx := identity.CurrentUser(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID, "ctx": fromCtx.ID, "token": CurrentToken(c) != ""})
	})
	return router, provider, tm
}

func TestSessionAuth_ValidBearer(t *testing.T) {
	router, _, tm := newAuthRouter(t, AuthOptions{})
	token, err := tm.GenerateToken("u1", "", "")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u1","ctx":"u1","token":true}`, w.Body.String())
}

func TestSessionAuth_Rejections(t *testing.T) {
	router, provider, tm := newAuthRouter(t, AuthOptions{})
	revoked, err := tm.GenerateToken("u2", "", "")
	require.NoError(t, err)
	require.NoError(t, provider.SignOut(revoked))

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "Unauthorized"},
		{"wrong scheme", "Basic abc", "Unauthorized"},
		{"garbage token", "Bearer not-a-jwt", "Unauthorized"},
		{"revoked token", "Bearer " + revoked, "Session ended"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"`+tt.message+`"}`, w.Body.String())
		})
	}
}

func TestSessionAuth_QueryToken(t *testing.T) {
	_, _, tm := newAuthRouter(t, AuthOptions{})
	token, err := tm.GenerateToken("u1", "", "")
	require.NoError(t, err)

	strict, _, _ := newAuthRouter(t, AuthOptions{})
	w := httptest.NewRecorder()
	strict.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token="+token, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	lenient, _, _ := newAuthRouter(t, AuthOptions{AllowQueryToken: true})
	w = httptest.NewRecorder()
	lenient.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
