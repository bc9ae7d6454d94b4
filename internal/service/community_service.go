package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/repository"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

const discussionPageLimit = 100

type communityRepository interface {
	ListByCourse(ctx context.Context, courseID string, limit int) ([]models.DiscussionDetail, error)
	Create(ctx context.Context, d *models.Discussion) error
	CreateFeedback(ctx context.Context, f *models.CourseFeedback) error
}

type completionReader interface {
	ComputeProgress(ctx context.Context, userID, courseID string) (*dto.CourseProgress, error)
}

// CommunityService covers course discussions and end-of-course feedback.
type CommunityService struct {
	repo      communityRepository
	lessons   lessonReader
	progress  completionReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCommunityService constructs CommunityService.
func NewCommunityService(repo communityRepository, lessons lessonReader, progress completionReader, validate *validator.Validate, logger *zap.Logger) *CommunityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommunityService{repo: repo, lessons: lessons, progress: progress, validator: validate, logger: logger, now: time.Now}
}

// ListDiscussions returns the latest messages of a granted course.
func (s *CommunityService) ListDiscussions(ctx context.Context, grant *AccessGrant, settings Settings) ([]models.DiscussionDetail, error) {
	if !settings.DiscussionsEnabled() {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "discussions are disabled")
	}
	items, err := s.repo.ListByCourse(ctx, grant.Course.ID, discussionPageLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list discussions")
	}
	return items, nil
}

// PostDiscussion adds a message, optionally tied to a lesson of the course.
func (s *CommunityService) PostDiscussion(ctx context.Context, grant *AccessGrant, settings Settings, req dto.PostDiscussionRequest) (*models.Discussion, error) {
	if !settings.DiscussionsEnabled() {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "discussions are disabled")
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid discussion payload")
	}
	if req.LessonID != nil {
		lesson, err := s.lessons.FindByID(ctx, *req.LessonID)
		if err != nil {
			return nil, notFoundOr(err, "lesson not found", "failed to load lesson")
		}
		if lesson.CourseID != grant.Course.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "lesson does not belong to this course")
		}
	}

	discussion := &models.Discussion{
		ID:        uuid.NewString(),
		CourseID:  grant.Course.ID,
		LessonID:  req.LessonID,
		UserID:    grant.User.ID,
		Message:   req.Message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, discussion); err != nil {
		return nil, appErrors.Internal(err, "failed to post discussion")
	}
	return discussion, nil
}

// SubmitFeedback records a one-time rating after the course is finished.
func (s *CommunityService) SubmitFeedback(ctx context.Context, grant *AccessGrant, settings Settings, req dto.SubmitFeedbackRequest) (*models.CourseFeedback, error) {
	if !settings.CourseFeedbackEnabled() {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "course feedback is disabled")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid feedback payload")
	}
	progress, err := s.progress.ComputeProgress(ctx, grant.User.ID, grant.Course.ID)
	if err != nil {
		return nil, err
	}
	if !progress.Completed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "course must be completed before giving feedback")
	}

	feedback := &models.CourseFeedback{
		ID:        uuid.NewString(),
		UserID:    grant.User.ID,
		CourseID:  grant.Course.ID,
		Rating:    req.Rating,
		Comment:   trimmedPtr(req.Comment),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateFeedback(ctx, feedback); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "feedback already submitted")
		}
		return nil, appErrors.Internal(err, "failed to store feedback")
	}
	return feedback, nil
}
