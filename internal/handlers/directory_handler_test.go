package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingmentor/wingmentor-api/internal/models"
	pkgerrors "github.com/wingmentor/wingmentor-api/pkg/errors"
)

func seedDirectory(t *testing.T, s *testServer) {
	t.Helper()
	s.seedUser(t, "u-amelia", map[string]any{
		"firstName": "Amelia", "fullName": "Amelia Earhart", "totalHours": 42.5,
		"region": "West", "flightSchool": "Harbor Aero",
	})
	s.seedUser(t, "u-bessie", map[string]any{
		"fullName": "Bessie Coleman", "totalHours": 19.999, "region": "West",
	})
	s.seedUser(t, "u-jacqueline", map[string]any{
		"displayName": "Jacqueline Cochran", "totalHours": "lots",
		"region": "East", "flightSchool": "Harbor Aero",
	})
	s.seedUser(t, "u-nobody", map[string]any{"region": "West"})
}

func assertGolden(t *testing.T, name string, body []byte) {
	t.Helper()
	var pretty bytes.Buffer
	require.NoError(t, json.Indent(&pretty, body, "", "  "))
	pretty.WriteByte('\n')

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, pretty.Bytes())
}

func TestDirectoryHandler_SearchPayload(t *testing.T) {
	s := newTestServer(t)
	seedDirectory(t, s)

	w := s.do(t, http.MethodGet, "/api/v1/users?region=West", s.token(t, "viewer"), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assertGolden(t, "directory_region_west", w.Body.Bytes())
}

func TestDirectoryHandler_SearchFilters(t *testing.T) {
	s := newTestServer(t)
	seedDirectory(t, s)
	token := s.token(t, "viewer")

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"everyone", "", []string{"u-amelia", "u-bessie", "u-jacqueline", "u-nobody"}},
		{"flight school", "?flightSchool=Harbor+Aero", []string{"u-amelia", "u-jacqueline"}},
		{"region and school", "?region=East&flightSchool=Harbor+Aero", []string{"u-jacqueline"}},
		{"name query is case-insensitive", "?q=JACQ", []string{"u-jacqueline"}},
		{"name query uses derived name", "?q=bes", []string{"u-bessie"}},
		{"no match", "?region=North", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/api/v1/users"+tt.query, token, nil)
			require.Equal(t, http.StatusOK, w.Code)

			var resp models.UsersResponse
			decodeBody(t, w, &resp)
			ids := []string{}
			for _, u := range resp.Users {
				ids = append(ids, u.ID)
			}
			assert.Equal(t, tt.expected, ids)
			assert.Equal(t, len(tt.expected), resp.Total)
		})
	}
}

func TestDirectoryHandler_GetUser(t *testing.T) {
	s := newTestServer(t)
	seedDirectory(t, s)
	token := s.token(t, "viewer")

	w := s.do(t, http.MethodGet, "/api/v1/users/u-jacqueline", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"id": "u-jacqueline",
		"firstName": "Jacqueline",
		"role": "Mentee",
		"totalHours": 0,
		"region": "East",
		"flightSchool": "Harbor Aero"
	}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/users/u-missing", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"User not found"}`, w.Body.String())
}

func TestDirectoryHandler_RequiresSession(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/users", "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type failingDirectory struct{}

func (failingDirectory) SearchUsers(context.Context, models.UserSearchFilter) ([]models.UserProfile, error) {
	return nil, pkgerrors.Persistence("query", "users", errors.New("permission denied"))
}

func (failingDirectory) GetUserProfile(context.Context, string) (*models.UserProfile, error) {
	return nil, pkgerrors.Persistence("get", "users", errors.New("permission denied"))
}

func TestDirectoryHandler_ReadFailures(t *testing.T) {
	s := newTestServerWith(t, failingDirectory{})
	token := s.token(t, "viewer")

	w := s.do(t, http.MethodGet, "/api/v1/users?region=West", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"users":[],"total":0}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/users/u-amelia", token, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch user"}`, w.Body.String())
}
