package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wingmentor/wingmentor-api/internal/models"
	"github.com/wingmentor/wingmentor-api/internal/repository"
	"github.com/wingmentor/wingmentor-api/internal/services"
	pkgerrors "github.com/wingmentor/wingmentor-api/pkg/errors"
)

func TestEnrollInProgram(t *testing.T) {
	ctx := context.Background()
	users := repository.NewUserRepository(newMemoryStore())
	svc := services.NewEnrollmentService(users)

	require.NoError(t, svc.EnrollInProgram(ctx, "u1", ""))
	require.NoError(t, svc.EnrollInProgram(ctx, "u1", models.DefaultProgram))
	require.NoError(t, svc.EnrollInProgram(ctx, "u1", "Instrument Rating"))

	programs, err := svc.GetEnrollmentStatus(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{models.DefaultProgram, "Instrument Rating"}, programs)
}

func TestEnrollInProgram_KeepsProfileFields(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	require.NoError(t, store.Create(ctx, repository.UsersCollection, "u1", map[string]any{
		"firstName":  "Amelia",
		"totalHours": 35,
	}))
	users := repository.NewUserRepository(store)

	require.NoError(t, services.NewEnrollmentService(users).EnrollInProgram(ctx, "u1", "Multi-Engine"))

	user, err := users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Amelia", user.FirstName)
	assert.Equal(t, 35.0, user.TotalHours)
	assert.Equal(t, []string{"Multi-Engine"}, user.EnrolledPrograms)
}

func TestCompleteEnrollment(t *testing.T) {
	ctx := context.Background()
	users := repository.NewUserRepository(newMemoryStore())
	svc := services.NewEnrollmentService(users)

	responses := map[string]any{"goal": "CFI", "hours": 12}
	require.NoError(t, svc.CompleteEnrollment(ctx, "u1", responses))

	user, err := users.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, []string{models.DefaultProgram}, user.EnrolledPrograms)
	assert.Equal(t, map[string]any{"goal": "CFI", "hours": 12.0}, user.OnboardingResponses)
	require.NotNil(t, user.EnrollmentAgreedAt)
	assert.True(t, user.EnrollmentAgreedAt.After(baseTime))
}

func TestGetEnrollmentStatus_UnknownUser(t *testing.T) {
	svc := services.NewEnrollmentService(repository.NewUserRepository(newMemoryStore()))

	programs, err := svc.GetEnrollmentStatus(context.Background(), "ghost")
	require.NoError(t, err)
	assert.NotNil(t, programs)
	assert.Empty(t, programs)
}

func TestResetEnrollment(t *testing.T) {
	ctx := context.Background()
	users := repository.NewUserRepository(newMemoryStore())
	svc := services.NewEnrollmentService(users)

	require.NoError(t, svc.CompleteEnrollment(ctx, "u1", map[string]any{"goal": "ATP"}))
	require.NoError(t, svc.ResetEnrollment(ctx, "u1"))

	user, err := users.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Empty(t, user.EnrolledPrograms)
	assert.Nil(t, user.OnboardingResponses)
	assert.Nil(t, user.EnrollmentAgreedAt)
}

func TestResetEnrollment_UnknownUser(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	users := repository.NewUserRepository(store)

	err := services.NewEnrollmentService(users).ResetEnrollment(ctx, "typo-uid")
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))

	user, err := users.Get(ctx, "typo-uid")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Zero(t, store.Len(repository.UsersCollection))

	found, err := services.NewDirectoryService(users).SearchUsers(ctx, models.UserSearchFilter{})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestEnrollment_Errors(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserStore)
	cause := pkgerrors.Persistence("merge", repository.UsersCollection, errors.New("denied"))
	users.On("Merge", mock.Anything, "u1", mock.Anything).Return(cause)
	svc := services.NewEnrollmentService(users)

	assert.True(t, errors.Is(svc.EnrollInProgram(ctx, "u1", "x"), pkgerrors.ErrPersistence))
	assert.True(t, errors.Is(svc.EnrollInProgram(ctx, "", "x"), pkgerrors.ErrInvalidInput))
	assert.True(t, errors.Is(svc.ResetEnrollment(ctx, " "), pkgerrors.ErrInvalidInput))
	users.AssertNumberOfCalls(t, "Merge", 1)
	users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}
