package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_Me(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/auth/me", s.token(t, "alice"), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"alice","displayName":"alice","email":"alice@example.com"}`, w.Body.String())
}

func TestAuthHandler_LogoutEndsSession(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "alice")

	w := s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Session ended"}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
