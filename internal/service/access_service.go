package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type principalReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type lessonReader interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
}

type enrollmentReader interface {
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
}

// AccessGrant is the outcome of a successful course access check.
// Enrollment is nil when access was granted through management rights.
type AccessGrant struct {
	User       *models.User
	Course     *models.Course
	Enrollment *models.Enrollment
	Manager    bool
}

// AccessService answers every "may this user touch this course" question.
// It never mutates state.
type AccessService struct {
	users       principalReader
	courses     courseReader
	lessons     lessonReader
	enrollments enrollmentReader
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewAccessService constructs the gate.
func NewAccessService(users principalReader, courses courseReader, lessons lessonReader, enrollments enrollmentReader, metrics *MetricsService, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{
		users:       users,
		courses:     courses,
		lessons:     lessons,
		enrollments: enrollments,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// CanManageCourse reports whether user may administer course content and enrollments.
func CanManageCourse(user *models.User, course *models.Course) bool {
	if user == nil || course == nil {
		return false
	}
	return user.IsAdmin() || (user.Role == models.RoleTeacher && course.TeacherID == user.ID)
}

// EvaluateEnrollment applies the student access rule to an enrollment at now.
func EvaluateEnrollment(enrollment *models.Enrollment, now time.Time) error {
	switch {
	case enrollment == nil:
		return appErrors.ErrNotEnrolled
	case !enrollment.Active:
		return appErrors.ErrEnrollmentInactive
	case enrollment.ExpiredAt(now):
		return appErrors.ErrAccessExpired
	}
	return nil
}

// ResolvePrincipal loads the user behind a verified token.
func (s *AccessService) ResolvePrincipal(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, appErrors.ErrUnauthenticated
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.ErrUnauthenticated
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.ErrAccountDeactivated
	}
	return user, nil
}

// CourseAccess checks whether user may read courseID.
func (s *AccessService) CourseAccess(ctx context.Context, user *models.User, courseID string) (*AccessGrant, error) {
	if user == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	if !user.Active {
		return nil, s.deny(appErrors.ErrAccountDeactivated)
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, notFoundOr(err, "course not found", "failed to load course")
	}
	if CanManageCourse(user, course) {
		return &AccessGrant{User: user, Course: course, Manager: true}, nil
	}

	enrollment, err := s.enrollments.FindByUserAndCourse(ctx, user.ID, courseID)
	if err != nil {
		if !isNoRows(err) {
			return nil, appErrors.Internal(err, "failed to load enrollment")
		}
		enrollment = nil
	}
	if err := EvaluateEnrollment(enrollment, s.now()); err != nil {
		return nil, s.deny(err)
	}
	return &AccessGrant{User: user, Course: course, Enrollment: enrollment}, nil
}

// LessonAccess gates a lesson through its course. Students never see
// lessons targeted at someone else; those read as missing.
func (s *AccessService) LessonAccess(ctx context.Context, user *models.User, lessonID string) (*AccessGrant, *models.Lesson, error) {
	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		return nil, nil, notFoundOr(err, "lesson not found", "failed to load lesson")
	}
	grant, err := s.CourseAccess(ctx, user, lesson.CourseID)
	if err != nil {
		return nil, nil, err
	}
	if !grant.Manager && !lesson.VisibleTo(user.ID) {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
	}
	return grant, lesson, nil
}

// ManageCourse loads courseID and requires management rights over it.
func (s *AccessService) ManageCourse(ctx context.Context, user *models.User, courseID string) (*models.Course, error) {
	if user == nil {
		return nil, appErrors.ErrUnauthenticated
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, notFoundOr(err, "course not found", "failed to load course")
	}
	if !CanManageCourse(user, course) {
		return nil, s.deny(appErrors.ErrUnauthorized)
	}
	return course, nil
}

// LessonCourse loads a lesson with its course without gating.
func (s *AccessService) LessonCourse(ctx context.Context, lessonID string) (*models.Lesson, *models.Course, error) {
	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		return nil, nil, notFoundOr(err, "lesson not found", "failed to load lesson")
	}
	course, err := s.courses.FindByID(ctx, lesson.CourseID)
	if err != nil {
		return nil, nil, notFoundOr(err, "course not found", "failed to load course")
	}
	return lesson, course, nil
}

func (s *AccessService) deny(err error) error {
	s.metrics.RecordGateDenial(appErrors.FromError(err).Code)
	return err
}
