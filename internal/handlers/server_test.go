package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/wingmentor/wingmentor-api/internal/docstore/memory"
	"github.com/wingmentor/wingmentor-api/internal/handlers"
	"github.com/wingmentor/wingmentor-api/internal/identity"
	"github.com/wingmentor/wingmentor-api/internal/middleware"
	"github.com/wingmentor/wingmentor-api/internal/repository"
	"github.com/wingmentor/wingmentor-api/internal/services"
	"github.com/wingmentor/wingmentor-api/internal/ws"
	"github.com/wingmentor/wingmentor-api/pkg/jwt"
	"golang.org/x/time/rate"
)

const testSecret = "test-secret-key-that-is-at-least-32-chars"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	store    *memory.Store
	users    *repository.UserRepository
	tokens   *jwt.TokenManager
	provider *identity.Provider
	hub      *ws.Hub
	router   *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, nil)
}

// newTestServerWith builds the API over an in-memory store. directory, when
// set, replaces the directory service.
func newTestServerWith(t *testing.T, directory services.DirectoryServiceInterface) *testServer {
	t.Helper()

	store := memory.New()
	users := repository.NewUserRepository(store)
	tokens := jwt.NewTokenManager(testSecret, "wingmentor-auth", time.Hour)
	provider := identity.NewProvider(tokens, time.Hour)
	hub := ws.NewHub()

	stopListening := provider.OnAuthStateChanged(func(change identity.Change) {
		if !change.SignedIn() {
			hub.CloseUser(change.UserID, "signed out")
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		stopListening()
		hub.CloseAll()
		cancel()
	})

	if directory == nil {
		directory = services.NewDirectoryService(users)
	}

	router := gin.New()
	handlers.RegisterAPIRoutes(router.Group("/api/v1"), handlers.Routes{
		Logs:       handlers.NewLogHandler(services.NewLogService(store, "atomic", nil)),
		Directory:  handlers.NewDirectoryHandler(directory),
		Chats:      handlers.NewChatHandler(services.NewChatService(repository.NewChatRepository(store)), hub, []string{"http://localhost:5173"}),
		Enrollment: handlers.NewEnrollmentHandler(services.NewEnrollmentService(users)),
		Auth:       handlers.NewAuthHandler(provider),
	}, provider, middleware.NewRateLimiter(ctx, rate.Inf, 1))

	return &testServer{
		store:    store,
		users:    users,
		tokens:   tokens,
		provider: provider,
		hub:      hub,
		router:   router,
	}
}

func (s *testServer) token(t *testing.T, uid string) string {
	t.Helper()
	token, err := s.tokens.GenerateToken(uid, uid+"@example.com", uid)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func (s *testServer) seedUser(t *testing.T, uid string, fields map[string]any) {
	t.Helper()
	require.NoError(t, s.users.Upsert(context.Background(), uid, fields))
}

func (s *testServer) openChat(t *testing.T, token, peer string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/chats", token, map[string]string{"peerId": peer})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		ChatID string `json:"chatId"`
	}
	decodeBody(t, w, &resp)
	return resp.ChatID
}
