package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type progressLessonReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error)
	CountByCourses(ctx context.Context, courseIDs []string) ([]models.CourseLessonCount, error)
}

type activityReader interface {
	ListActivities(ctx context.Context, userID string, courseIDs []string) ([]models.LessonActivity, error)
}

type userEnrollmentReader interface {
	ListByUser(ctx context.Context, userID string) ([]models.EnrolledCourse, error)
}

type feedbackReader interface {
	HasFeedback(ctx context.Context, userID, courseID string) (bool, error)
	FeedbackCourses(ctx context.Context, userID string, courseIDs []string) (map[string]bool, error)
}

// CompletedLessonCount counts distinct lessons of courseLessonIDs that have
// at least one activity.
func CompletedLessonCount(activities []models.LessonActivity, courseLessonIDs []string) int {
	lessons := make(map[string]struct{}, len(courseLessonIDs))
	for _, id := range courseLessonIDs {
		lessons[id] = struct{}{}
	}
	done := make(map[string]struct{})
	for _, a := range activities {
		if _, ok := lessons[a.LessonID]; ok {
			done[a.LessonID] = struct{}{}
		}
	}
	return len(done)
}

// CompletedByCourse counts distinct completed lessons per course.
func CompletedByCourse(activities []models.LessonActivity) map[string]int {
	seen := make(map[string]map[string]struct{})
	for _, a := range activities {
		lessons, ok := seen[a.CourseID]
		if !ok {
			lessons = make(map[string]struct{})
			seen[a.CourseID] = lessons
		}
		lessons[a.LessonID] = struct{}{}
	}
	counts := make(map[string]int, len(seen))
	for courseID, lessons := range seen {
		counts[courseID] = len(lessons)
	}
	return counts
}

// CompletionPercentage is round(100*completed/total), 0 for an empty course.
func CompletionPercentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}

// ProgressService reports per-course completion.
type ProgressService struct {
	lessons     progressLessonReader
	activities  activityReader
	enrollments userEnrollmentReader
	feedback    feedbackReader
	logger      *zap.Logger
	now         func() time.Time
}

// NewProgressService constructs ProgressService.
func NewProgressService(lessons progressLessonReader, activities activityReader, enrollments userEnrollmentReader, feedback feedbackReader, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		lessons:     lessons,
		activities:  activities,
		enrollments: enrollments,
		feedback:    feedback,
		logger:      logger,
		now:         time.Now,
	}
}

// ComputeProgress summarises userID's completion of courseID.
func (s *ProgressService) ComputeProgress(ctx context.Context, userID, courseID string) (*dto.CourseProgress, error) {
	lessons, err := s.lessons.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load lessons")
	}
	ids := make([]string, len(lessons))
	for i, l := range lessons {
		ids[i] = l.ID
	}
	activities, err := s.activities.ListActivities(ctx, userID, []string{courseID})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load activity")
	}
	completed := CompletedLessonCount(activities, ids)
	pct := CompletionPercentage(completed, len(ids))

	progress := &dto.CourseProgress{
		CourseID:           courseID,
		TotalLessons:       len(ids),
		CompletedLessons:   completed,
		ProgressPercentage: pct,
		Completed:          pct == 100,
	}
	if s.feedback != nil {
		submitted, err := s.feedback.HasFeedback(ctx, userID, courseID)
		if err != nil {
			s.logger.Warn("failed to check feedback", zap.String("course_id", courseID), zap.Error(err))
		}
		progress.FeedbackSubmitted = submitted
	}
	return progress, nil
}

// Dashboard lists every enrollment of userID with its progress.
// feedbackEnabled controls whether fully completed courses prompt for feedback.
func (s *ProgressService) Dashboard(ctx context.Context, userID string, feedbackEnabled bool) ([]dto.DashboardItem, error) {
	enrolled, err := s.enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load enrollments")
	}
	items := make([]dto.DashboardItem, 0, len(enrolled))
	if len(enrolled) == 0 {
		return items, nil
	}

	courseIDs := make([]string, len(enrolled))
	for i, e := range enrolled {
		courseIDs[i] = e.CourseID
	}
	counts, err := s.lessons.CountByCourses(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count lessons")
	}
	totals := make(map[string]int, len(counts))
	for _, c := range counts {
		totals[c.CourseID] = c.Total
	}
	activities, err := s.activities.ListActivities(ctx, userID, courseIDs)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load activity")
	}
	completed := CompletedByCourse(activities)

	var given map[string]bool
	if feedbackEnabled && s.feedback != nil {
		given, err = s.feedback.FeedbackCourses(ctx, userID, courseIDs)
		if err != nil {
			s.logger.Warn("failed to load feedback state", zap.String("user_id", userID), zap.Error(err))
		}
	}

	now := s.now()
	for _, e := range enrolled {
		total := totals[e.CourseID]
		done := completed[e.CourseID]
		pct := CompletionPercentage(done, total)
		items = append(items, dto.DashboardItem{
			CourseID:           e.CourseID,
			Title:              e.Title,
			TotalLessons:       total,
			CompletedLessons:   done,
			ProgressPercentage: pct,
			ExpiresAt:          e.ExpiresAt,
			IsActive:           e.Active,
			Expired:            e.ExpiredAt(now),
			FeedbackDue:        feedbackEnabled && pct == 100 && !given[e.CourseID],
		})
	}
	return items, nil
}
