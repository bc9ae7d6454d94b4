package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type enrollmentRepository interface {
	Upsert(ctx context.Context, userID, courseID string, enrolledAt, expiresAt time.Time) (*models.Enrollment, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	SetActive(ctx context.Context, id string, active bool) (*models.Enrollment, error)
	Toggle(ctx context.Context, id string) (*models.Enrollment, error)
	Extend(ctx context.Context, id string, days int) (*models.Enrollment, error)
	UpdateNotes(ctx context.Context, id string, notes *string) (*models.Enrollment, error)
	Delete(ctx context.Context, id string) error
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
}

type gradebookInvalidator interface {
	Invalidate(ctx context.Context, courseID string)
}

// EnrollmentService owns every enrollment state transition.
type EnrollmentService struct {
	repo      enrollmentRepository
	courses   courseReader
	gradebook gradebookInvalidator
	audit     auditWriter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, gradebook gradebookInvalidator, audit auditWriter, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:      repo,
		courses:   courses,
		gradebook: gradebook,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Enroll grants user access to courseID for the course's access window.
// Re-enrolling reactivates the existing row and restarts the window at now.
func (s *EnrollmentService) Enroll(ctx context.Context, user *models.User, courseID string) (*models.Enrollment, error) {
	if user == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, notFoundOr(err, "course not found", "failed to load course")
	}
	now := s.now().UTC()
	expiresAt := now.AddDate(0, 0, course.AccessDays)
	enrollment, err := s.repo.Upsert(ctx, user.ID, course.ID, now, expiresAt)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to enroll")
	}
	s.afterWrite(ctx, user, "enroll", models.AuditActionEnroll, enrollment)
	return enrollment, nil
}

// Toggle flips the active flag, or forces it when active is non-nil.
func (s *EnrollmentService) Toggle(ctx context.Context, actor *models.User, id string, active *bool) (*models.Enrollment, error) {
	if _, err := s.managed(ctx, actor, id); err != nil {
		return nil, err
	}
	var (
		updated *models.Enrollment
		err     error
	)
	if active != nil {
		updated, err = s.repo.SetActive(ctx, id, *active)
	} else {
		updated, err = s.repo.Toggle(ctx, id)
	}
	if err != nil {
		return nil, notFoundOr(err, "enrollment not found", "failed to update enrollment")
	}
	s.afterWrite(ctx, actor, "toggle", models.AuditActionEnrollmentToggle, updated)
	return updated, nil
}

// SetActive forces the active flag.
func (s *EnrollmentService) SetActive(ctx context.Context, actor *models.User, id string, active bool) (*models.Enrollment, error) {
	return s.Toggle(ctx, actor, id, &active)
}

// Extend pushes the stored expiry forward by days. Admin only.
func (s *EnrollmentService) Extend(ctx context.Context, actor *models.User, id string, req dto.ExtendEnrollmentRequest) (*models.Enrollment, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "days must be a positive number")
	}
	updated, err := s.repo.Extend(ctx, id, req.Days)
	if err != nil {
		return nil, notFoundOr(err, "enrollment not found", "failed to extend enrollment")
	}
	s.afterWrite(ctx, actor, "extend", models.AuditActionEnrollmentExtend, updated)
	return updated, nil
}

// Delete hard deletes an enrollment. Submissions are left in place. Admin only.
func (s *EnrollmentService) Delete(ctx context.Context, actor *models.User, id string) error {
	if !actor.IsAdmin() {
		return appErrors.ErrUnauthorized
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "enrollment not found", "failed to load enrollment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "enrollment not found", "failed to delete enrollment")
	}
	s.afterWrite(ctx, actor, "delete", models.AuditActionEnrollmentDelete, enrollment)
	return nil
}

// UpdateNotes replaces the manager's private notes on an enrollment.
func (s *EnrollmentService) UpdateNotes(ctx context.Context, actor *models.User, id string, req dto.UpdateEnrollmentNotesRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid notes payload")
	}
	if _, err := s.managed(ctx, actor, id); err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateNotes(ctx, id, trimmedPtr(req.Notes))
	if err != nil {
		return nil, notFoundOr(err, "enrollment not found", "failed to update notes")
	}
	s.afterWrite(ctx, actor, "notes", models.AuditActionEnrollmentNotes, updated)
	return updated, nil
}

// ListByCourse returns every enrollment of a course, inactive ones included.
func (s *EnrollmentService) ListByCourse(ctx context.Context, actor *models.User, courseID string) ([]models.EnrollmentDetail, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, notFoundOr(err, "course not found", "failed to load course")
	}
	if !CanManageCourse(actor, course) {
		return nil, appErrors.ErrUnauthorized
	}
	items, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list enrollments")
	}
	return items, nil
}

func (s *EnrollmentService) managed(ctx context.Context, actor *models.User, id string) (*models.Enrollment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "enrollment not found", "failed to load enrollment")
	}
	course, err := s.courses.FindByID(ctx, enrollment.CourseID)
	if err != nil {
		return nil, notFoundOr(err, "course not found", "failed to load course")
	}
	if !CanManageCourse(actor, course) {
		return nil, appErrors.ErrUnauthorized
	}
	return enrollment, nil
}

func (s *EnrollmentService) afterWrite(ctx context.Context, actor *models.User, operation, action string, enrollment *models.Enrollment) {
	s.metrics.RecordEnrollmentWrite(operation)
	if s.gradebook != nil {
		s.gradebook.Invalidate(ctx, enrollment.CourseID)
	}
	id := enrollment.ID
	emitAudit(ctx, s.audit, s.logger, "enrollment-service", &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     action,
		Resource:   models.AuditResourceEnrollment,
		ResourceID: &id,
		NewValues: auditPayload(map[string]interface{}{
			"user_id":    enrollment.UserID,
			"course_id":  enrollment.CourseID,
			"is_active":  enrollment.Active,
			"expires_at": enrollment.ExpiresAt,
		}),
	})
}
