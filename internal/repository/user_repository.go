package repository

import (
	"context"
	"errors"

	"github.com/wingmentor/wingmentor-api/internal/docstore"
	"github.com/wingmentor/wingmentor-api/internal/models"
	pkgerrors "github.com/wingmentor/wingmentor-api/pkg/errors"
)

// UsersCollection holds user profiles
const UsersCollection = "users"

// UserRepository reads profiles and writes the enrollment fields
type UserRepository struct {
	store docstore.Store
}

// NewUserRepository creates a user repository over the store
func NewUserRepository(store docstore.Store) *UserRepository {
	return &UserRepository{store: store}
}

// Get loads a user; (nil, nil) when absent
func (r *UserRepository) Get(ctx context.Context, uid string) (*models.UserRecord, error) {
	doc, err := r.store.Get(ctx, UsersCollection, uid)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Persistence("get", UsersCollection, err)
	}
	user := decodeUser(*doc)
	return &user, nil
}

// Find returns the users matching the non-empty equality filters, in store order
func (r *UserRepository) Find(ctx context.Context, region, flightSchool string) ([]models.UserRecord, error) {
	q := docstore.From(UsersCollection)
	if region != "" {
		q = q.Where(models.UserFieldRegion, region)
	}
	if flightSchool != "" {
		q = q.Where(models.UserFieldFlightSchool, flightSchool)
	}

	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, pkgerrors.Persistence("query", UsersCollection, err)
	}
	users := make([]models.UserRecord, 0, len(docs))
	for _, doc := range docs {
		users = append(users, decodeUser(doc))
	}
	return users, nil
}

// Merge upserts fields on users/{uid}; sentinels pass through
func (r *UserRepository) Merge(ctx context.Context, uid string, patch map[string]any) error {
	if err := r.store.Merge(ctx, UsersCollection, uid, patch); err != nil {
		return pkgerrors.Persistence("merge", UsersCollection, err)
	}
	return nil
}

// Update patches an existing user. A missing user is ErrNotFound, never
// created.
func (r *UserRepository) Update(ctx context.Context, uid string, patch map[string]any) error {
	if err := r.store.Update(ctx, UsersCollection, uid, patch); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return pkgerrors.NotFoundError("user " + uid)
		}
		return pkgerrors.Persistence("update", UsersCollection, err)
	}
	return nil
}

// Upsert writes a full profile, used by seeding
func (r *UserRepository) Upsert(ctx context.Context, uid string, fields map[string]any) error {
	return r.Merge(ctx, uid, fields)
}

func decodeUser(doc docstore.Document) models.UserRecord {
	d := doc.Data
	return models.UserRecord{
		ID:                  doc.ID,
		FirstName:           stringField(d, models.UserFieldFirstName),
		FullName:            stringField(d, models.UserFieldFullName),
		DisplayName:         stringField(d, models.UserFieldDisplayName),
		TotalHours:          floatField(d, models.UserFieldTotalHours),
		Region:              stringField(d, models.UserFieldRegion),
		FlightSchool:        stringField(d, models.UserFieldFlightSchool),
		EnrolledPrograms:    stringSliceField(d, models.UserFieldEnrolledPrograms),
		OnboardingResponses: mapField(d, models.UserFieldOnboarding),
		EnrollmentAgreedAt:  optionalTimeField(d, models.UserFieldEnrollmentAgreedAt),
	}
}
