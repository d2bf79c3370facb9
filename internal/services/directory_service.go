package services

import (
	"context"
	"strings"

	"github.com/wingmentor/wingmentor-api/internal/models"
	"github.com/wingmentor/wingmentor-api/internal/repository"
	"github.com/wingmentor/wingmentor-api/pkg/logger"
	"github.com/wingmentor/wingmentor-api/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// DirectoryService searches profiles and derives their public view
type DirectoryService struct {
	users repository.UserStore
}

// NewDirectoryService creates a directory service
func NewDirectoryService(users repository.UserStore) *DirectoryService {
	return &DirectoryService{users: users}
}

// SearchUsers applies region and flight school as store filters, then keeps
// the profiles whose derived first name contains query, ignoring case.
// Results keep the store's order.
func (s *DirectoryService) SearchUsers(ctx context.Context, filter models.UserSearchFilter) ([]models.UserProfile, error) {
	records, err := s.users.Find(ctx, strings.TrimSpace(filter.Region), strings.TrimSpace(filter.FlightSchool))
	if err != nil {
		metrics.DirectorySearches.WithLabelValues("error").Inc()
		logger.Error("Failed to search users", zap.Error(err),
			zap.String("region", filter.Region),
			zap.String("flight_school", filter.FlightSchool))
		return nil, err
	}

	// Casers keep state; one per call
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(filter.Query))

	profiles := make([]models.UserProfile, 0, len(records))
	for i := range records {
		profile := records[i].Profile()
		if needle != "" && !strings.Contains(fold.String(profile.FirstName), needle) {
			continue
		}
		profiles = append(profiles, profile)
	}

	metrics.DirectorySearches.WithLabelValues("success").Inc()
	metrics.DirectoryResultsReturned.Observe(float64(len(profiles)))
	return profiles, nil
}

// GetUserProfile returns the profile of uid, or nil when no such user exists
func (s *DirectoryService) GetUserProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	if err := requireID("uid", uid); err != nil {
		return nil, err
	}
	record, err := s.users.Get(ctx, uid)
	if err != nil {
		logger.Error("Failed to load user profile", zap.Error(err), zap.String("uid", uid))
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	profile := record.Profile()
	return &profile, nil
}
