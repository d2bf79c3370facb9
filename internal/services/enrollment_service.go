package services

import (
	"context"

	"github.com/wingmentor/wingmentor-api/internal/docstore"
	"github.com/wingmentor/wingmentor-api/internal/models"
	"github.com/wingmentor/wingmentor-api/internal/repository"
	"github.com/wingmentor/wingmentor-api/pkg/logger"
	"github.com/wingmentor/wingmentor-api/pkg/metrics"
	"github.com/wingmentor/wingmentor-api/pkg/sanitize"
	"go.uber.org/zap"
)

// EnrollmentService tracks program enrollment on the user document
type EnrollmentService struct {
	users repository.UserStore
}

// NewEnrollmentService creates an enrollment service
func NewEnrollmentService(users repository.UserStore) *EnrollmentService {
	return &EnrollmentService{users: users}
}

// EnrollInProgram adds program to the user's programs, creating the user
// document when needed
func (s *EnrollmentService) EnrollInProgram(ctx context.Context, uid, program string) error {
	if err := requireID("uid", uid); err != nil {
		return err
	}
	program = sanitize.Text(program)
	if program == "" {
		program = models.DefaultProgram
	}

	err := s.users.Merge(ctx, uid, map[string]any{
		models.UserFieldEnrolledPrograms: docstore.ArrayUnion(program),
	})
	return s.record("enroll", uid, err, zap.String("program", program))
}

// CompleteEnrollment stores the onboarding answers, the agreement time and
// the Foundational enrollment in one write
func (s *EnrollmentService) CompleteEnrollment(ctx context.Context, uid string, responses map[string]any) error {
	if err := requireID("uid", uid); err != nil {
		return err
	}
	if responses == nil {
		responses = map[string]any{}
	}

	err := s.users.Merge(ctx, uid, map[string]any{
		models.UserFieldEnrolledPrograms:   docstore.ArrayUnion(models.DefaultProgram),
		models.UserFieldOnboarding:         responses,
		models.UserFieldEnrollmentAgreedAt: docstore.ServerTimestamp,
	})
	return s.record("complete", uid, err)
}

// GetEnrollmentStatus returns the programs of uid; empty for unknown users
func (s *EnrollmentService) GetEnrollmentStatus(ctx context.Context, uid string) ([]string, error) {
	if err := requireID("uid", uid); err != nil {
		return nil, err
	}
	user, err := s.users.Get(ctx, uid)
	if err != nil {
		logger.Error("Failed to load enrollment status", zap.Error(err), zap.String("uid", uid))
		return nil, err
	}
	if user == nil {
		return []string{}, nil
	}
	return user.EnrolledPrograms, nil
}

// ResetEnrollment clears programs and onboarding data so the user goes
// through enrollment again. Unknown users are ErrNotFound.
func (s *EnrollmentService) ResetEnrollment(ctx context.Context, uid string) error {
	if err := requireID("uid", uid); err != nil {
		return err
	}
	err := s.users.Update(ctx, uid, map[string]any{
		models.UserFieldEnrolledPrograms:   []string{},
		models.UserFieldOnboarding:         docstore.DeleteField,
		models.UserFieldEnrollmentAgreedAt: docstore.DeleteField,
	})
	return s.record("reset", uid, err)
}

func (s *EnrollmentService) record(op, uid string, err error, fields ...zap.Field) error {
	if err != nil {
		metrics.Enrollments.WithLabelValues(op, "error").Inc()
		logger.Error("Enrollment update failed",
			append([]zap.Field{zap.Error(err), zap.String("operation", op), zap.String("uid", uid)}, fields...)...)
		return err
	}
	metrics.Enrollments.WithLabelValues(op, "success").Inc()
	logger.Info("Enrollment updated",
		append([]zap.Field{zap.String("operation", op), zap.String("uid", uid)}, fields...)...)
	return nil
}
