package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, int, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

// CourseServiceConfig carries course defaults.
type CourseServiceConfig struct {
	DefaultAccessDays int
}

// CourseService manages the course catalog.
type CourseService struct {
	repo      courseRepository
	users     principalReader
	gradebook gradebookInvalidator
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	cfg       CourseServiceConfig
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, users principalReader, gradebook gradebookInvalidator, audit auditWriter, validate *validator.Validate, logger *zap.Logger, cfg CourseServiceConfig) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultAccessDays <= 0 {
		cfg.DefaultAccessDays = 365
	}
	return &CourseService{repo: repo, users: users, gradebook: gradebook, audit: audit, validator: validate, logger: logger, cfg: cfg}
}

// List returns the public catalog.
func (s *CourseService) List(ctx context.Context, query dto.CourseQuery) ([]models.CourseSummary, *models.Pagination, error) {
	filter := models.CourseFilter{
		TeacherID:     query.TeacherID,
		Search:        strings.TrimSpace(query.Search),
		PublishedOnly: true,
		Page:          query.Page,
		PageSize:      query.PageSize,
	}
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create adds a course. Teachers always own what they create; admins may
// assign another teacher.
func (s *CourseService) Create(ctx context.Context, actor *models.User, req dto.CreateCourseRequest) (*models.Course, error) {
	if actor == nil || (actor.Role != models.RoleTeacher && !actor.IsAdmin()) {
		return nil, appErrors.ErrUnauthorized
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid course payload")
	}

	ownerID := actor.ID
	if actor.IsAdmin() && req.TeacherID != "" {
		owner, err := s.users.FindByID(ctx, req.TeacherID)
		if err != nil {
			return nil, notFoundOr(err, "teacher not found", "failed to load teacher")
		}
		if owner.Role != models.RoleTeacher {
			return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_id must reference a teacher")
		}
		ownerID = owner.ID
	}

	course := &models.Course{
		Title:        req.Title,
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
		AccessDays:   s.cfg.DefaultAccessDays,
		TeacherID:    ownerID,
	}
	if req.AccessDays != nil {
		course.AccessDays = *req.AccessDays
	}
	if req.Published != nil {
		course.Published = *req.Published
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Internal(err, "failed to create course")
	}
	s.emit(ctx, actor, models.AuditActionCourseCreate, course)
	return course, nil
}

// Update patches a course. Managers only.
func (s *CourseService) Update(ctx context.Context, actor *models.User, id string, req dto.UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid course payload")
	}
	course, err := s.managed(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.ThumbnailURL != nil {
		course.ThumbnailURL = trimmedPtr(*req.ThumbnailURL)
	}
	if req.AccessDays != nil {
		course.AccessDays = *req.AccessDays
	}
	if req.Published != nil {
		course.Published = *req.Published
	}
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Internal(err, "failed to update course")
	}
	s.emit(ctx, actor, models.AuditActionCourseUpdate, course)
	return course, nil
}

// Delete removes a course with its lessons, submissions and certificates.
func (s *CourseService) Delete(ctx context.Context, actor *models.User, id string) error {
	course, err := s.managed(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "course not found", "failed to delete course")
	}
	if s.gradebook != nil {
		s.gradebook.Invalidate(ctx, id)
	}
	s.emit(ctx, actor, models.AuditActionCourseDelete, course)
	return nil
}

func (s *CourseService) managed(ctx context.Context, actor *models.User, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "course not found", "failed to load course")
	}
	if !CanManageCourse(actor, course) {
		return nil, appErrors.ErrUnauthorized
	}
	return course, nil
}

func (s *CourseService) emit(ctx context.Context, actor *models.User, action string, course *models.Course) {
	id := course.ID
	emitAudit(ctx, s.audit, s.logger, "course-service", &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     action,
		Resource:   models.AuditResourceCourse,
		ResourceID: &id,
		NewValues:  auditPayload(map[string]interface{}{"title": course.Title, "teacher_id": course.TeacherID, "is_published": course.Published}),
	})
}
