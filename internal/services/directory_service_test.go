package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wingmentor/wingmentor-api/internal/docstore/memory"
	"github.com/wingmentor/wingmentor-api/internal/models"
	"github.com/wingmentor/wingmentor-api/internal/repository"
	"github.com/wingmentor/wingmentor-api/internal/services"
	pkgerrors "github.com/wingmentor/wingmentor-api/pkg/errors"
)

func seedUsers(t *testing.T, store *memory.Store) {
	t.Helper()
	users := []struct {
		id     string
		fields map[string]any
	}{
		{"u-jordan", map[string]any{"fullName": "Jordan Lee", "totalHours": 19.999, "region": "West", "flightSchool": "Skyline"}},
		{"u-amelia", map[string]any{"firstName": "Amelia", "totalHours": 20, "region": "West", "flightSchool": "Harbor"}},
		{"u-emile", map[string]any{"displayName": "Émile Dubois", "totalHours": 120.5, "region": "East"}},
		{"u-blank", map[string]any{"region": "West", "flightSchool": "Skyline"}},
		{"u-bad", map[string]any{"firstName": 42, "fullName": "Jorge Ramos", "totalHours": "lots", "region": "West"}},
	}
	ctx := context.Background()
	for _, u := range users {
		require.NoError(t, store.Create(ctx, repository.UsersCollection, u.id, u.fields))
	}
}

func newDirectory(t *testing.T) *services.DirectoryService {
	store := newMemoryStore()
	seedUsers(t, store)
	return services.NewDirectoryService(repository.NewUserRepository(store))
}

func ids(profiles []models.UserProfile) []string {
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.ID)
	}
	return out
}

func TestSearchUsers_Filters(t *testing.T) {
	svc := newDirectory(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		filter   models.UserSearchFilter
		expected []string
	}{
		{"no filters keeps store order", models.UserSearchFilter{}, []string{"u-jordan", "u-amelia", "u-emile", "u-blank", "u-bad"}},
		{"region", models.UserSearchFilter{Region: "West"}, []string{"u-jordan", "u-amelia", "u-blank", "u-bad"}},
		{"region and school", models.UserSearchFilter{Region: "West", FlightSchool: "Skyline"}, []string{"u-jordan", "u-blank"}},
		{"no match", models.UserSearchFilter{Region: "North"}, []string{}},
		{"name substring ignores case", models.UserSearchFilter{Query: "JOR"}, []string{"u-jordan", "u-bad"}},
		{"name with accents", models.UserSearchFilter{Query: "émi"}, []string{"u-emile"}},
		{"name and region", models.UserSearchFilter{Region: "East", Query: "jor"}, []string{}},
		{"unknown name is searchable", models.UserSearchFilter{Query: "unknown"}, []string{"u-blank"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles, err := svc.SearchUsers(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids(profiles))
		})
	}
}

func TestSearchUsers_DerivesNameAndRole(t *testing.T) {
	svc := newDirectory(t)

	profiles, err := svc.SearchUsers(context.Background(), models.UserSearchFilter{})
	require.NoError(t, err)

	byID := make(map[string]models.UserProfile)
	for _, p := range profiles {
		byID[p.ID] = p
	}

	assert.Equal(t, "Jordan", byID["u-jordan"].FirstName)
	assert.Equal(t, models.RoleMentee, byID["u-jordan"].Role)
	assert.Equal(t, models.RoleMentor, byID["u-amelia"].Role)
	assert.Equal(t, "Émile", byID["u-emile"].FirstName)
	assert.Equal(t, models.UnknownFirstName, byID["u-blank"].FirstName)

	// Wrong types read as absent
	assert.Equal(t, "Jorge", byID["u-bad"].FirstName)
	assert.Zero(t, byID["u-bad"].TotalHours)
	assert.Equal(t, models.RoleMentee, byID["u-bad"].Role)
}

func TestGetUserProfile(t *testing.T) {
	svc := newDirectory(t)
	ctx := context.Background()

	profile, err := svc.GetUserProfile(ctx, "u-amelia")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, models.UserProfile{
		ID:           "u-amelia",
		FirstName:    "Amelia",
		Role:         models.RoleMentor,
		TotalHours:   20,
		Region:       "West",
		FlightSchool: "Harbor",
	}, *profile)

	missing, err := svc.GetUserProfile(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSearchUsers_ReadFailure(t *testing.T) {
	users := new(MockUserStore)
	cause := pkgerrors.Persistence("query", repository.UsersCollection, errors.New("timeout"))
	users.On("Find", mock.Anything, "West", "").Return(nil, cause)

	profiles, err := services.NewDirectoryService(users).SearchUsers(context.Background(), models.UserSearchFilter{Region: " West "})
	assert.Nil(t, profiles)
	assert.True(t, errors.Is(err, pkgerrors.ErrPersistence))
	users.AssertExpectations(t)
}
