package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type gradableLessonReader interface {
	ListGradable(ctx context.Context, courseID string) ([]models.Lesson, error)
}

type courseEnrollmentReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
}

type gradeReader interface {
	ListQuizAttempts(ctx context.Context, courseID string) ([]models.QuizAttempt, error)
	ListAssignmentGrades(ctx context.Context, courseID string) ([]models.AssignmentGrade, error)
}

type gradebookExporter interface {
	Render(ctx context.Context, book *dto.Gradebook, courseTitle, format string) (*ExportFile, error)
}

// GradebookServiceConfig tunes caching.
type GradebookServiceConfig struct {
	CacheTTL time.Duration
}

// GradebookService assembles the per-course grade matrix.
type GradebookService struct {
	courses     courseReader
	lessons     gradableLessonReader
	enrollments courseEnrollmentReader
	grades      gradeReader
	cache       *CacheService
	exporter    gradebookExporter
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         GradebookServiceConfig
}

// NewGradebookService constructs GradebookService.
func NewGradebookService(courses courseReader, lessons gradableLessonReader, enrollments courseEnrollmentReader, grades gradeReader, cache *CacheService, exporter gradebookExporter, metrics *MetricsService, logger *zap.Logger, cfg GradebookServiceConfig) *GradebookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Minute
	}
	return &GradebookService{
		courses:     courses,
		lessons:     lessons,
		enrollments: enrollments,
		grades:      grades,
		cache:       cache,
		exporter:    exporter,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
	}
}

// BestQuizScores reduces attempts to the highest score per (user, lesson).
func BestQuizScores(attempts []models.QuizAttempt) map[string]map[string]int {
	best := make(map[string]map[string]int)
	for _, a := range attempts {
		perLesson, ok := best[a.UserID]
		if !ok {
			perLesson = make(map[string]int)
			best[a.UserID] = perLesson
		}
		if current, seen := perLesson[a.LessonID]; !seen || a.Score > current {
			perLesson[a.LessonID] = a.Score
		}
	}
	return best
}

// AssembleGradebook joins the batched inputs into a gradebook. Quiz cells
// carry the best attempt and assignment cells the recorded grade; missing
// data leaves the cell out.
func AssembleGradebook(courseID string, lessons []models.Lesson, enrollments []models.EnrollmentDetail, attempts []models.QuizAttempt, graded []models.AssignmentGrade) *dto.Gradebook {
	book := &dto.Gradebook{
		CourseID: courseID,
		Columns:  make([]dto.GradebookColumn, 0, len(lessons)),
		Rows:     make([]dto.GradebookRow, 0, len(enrollments)),
	}
	kinds := make(map[string]models.LessonType, len(lessons))
	for _, l := range lessons {
		if !l.Type.Gradable() {
			continue
		}
		kinds[l.ID] = l.Type
		book.Columns = append(book.Columns, dto.GradebookColumn{ID: l.ID, Title: l.Title, Type: string(l.Type), Position: l.Position})
	}

	quiz := BestQuizScores(attempts)
	assignments := make(map[string]map[string]int)
	for _, g := range graded {
		perLesson, ok := assignments[g.UserID]
		if !ok {
			perLesson = make(map[string]int)
			assignments[g.UserID] = perLesson
		}
		perLesson[g.LessonID] = g.Grade
	}

	for _, e := range enrollments {
		row := dto.GradebookRow{
			EnrollmentID: e.ID,
			UserID:       e.UserID,
			StudentName:  e.StudentName,
			StudentEmail: e.StudentEmail,
			IsActive:     e.Active,
			Grades:       make(map[string]int),
		}
		for lessonID, kind := range kinds {
			var (
				score int
				ok    bool
			)
			switch kind {
			case models.LessonTypeQuiz:
				score, ok = quiz[e.UserID][lessonID]
			case models.LessonTypeAssignment:
				score, ok = assignments[e.UserID][lessonID]
			}
			if ok {
				row.Grades[lessonID] = score
			}
		}
		book.Rows = append(book.Rows, row)
	}
	return book
}

// Build returns the gradebook of courseID. Managers only.
func (s *GradebookService) Build(ctx context.Context, actor *models.User, courseID string) (*dto.Gradebook, bool, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, false, notFoundOr(err, "course not found", "failed to load course")
	}
	if !CanManageCourse(actor, course) {
		return nil, false, appErrors.ErrUnauthorized
	}
	return s.load(ctx, courseID)
}

// Export renders the gradebook in the requested format.
func (s *GradebookService) Export(ctx context.Context, actor *models.User, courseID string, query dto.GradebookExportQuery) (*ExportFile, error) {
	format := query.Format
	if format == "" {
		format = ExportFormatCSV
	}
	if !validExportFormat(format) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be one of csv, pdf, xlsx")
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, notFoundOr(err, "course not found", "failed to load course")
	}
	if !CanManageCourse(actor, course) {
		return nil, appErrors.ErrUnauthorized
	}
	book, _, err := s.load(ctx, courseID)
	if err != nil {
		return nil, err
	}
	file, err := s.exporter.Render(ctx, book, course.Title, format)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to export gradebook")
	}
	return file, nil
}

// Invalidate drops the cached gradebook of courseID.
func (s *GradebookService) Invalidate(ctx context.Context, courseID string) {
	if err := s.cache.Delete(ctx, gradebookCacheKey(courseID)); err != nil {
		s.logger.Warn("failed to invalidate gradebook cache", zap.String("course_id", courseID), zap.Error(err))
	}
}

func (s *GradebookService) load(ctx context.Context, courseID string) (*dto.Gradebook, bool, error) {
	key := gradebookCacheKey(courseID)
	var cached dto.Gradebook
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	start := time.Now()
	lessons, err := s.lessons.ListGradable(ctx, courseID)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load lessons")
	}
	enrollments, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load enrollments")
	}
	attempts, err := s.grades.ListQuizAttempts(ctx, courseID)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load quiz attempts")
	}
	graded, err := s.grades.ListAssignmentGrades(ctx, courseID)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load assignment grades")
	}
	s.metrics.ObserveDBQuery("gradebook_build", time.Since(start))

	book := AssembleGradebook(courseID, lessons, enrollments, attempts, graded)
	if err := s.cache.Set(ctx, key, book, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache gradebook", zap.String("course_id", courseID), zap.Error(err))
	}
	return book, false, nil
}

func gradebookCacheKey(courseID string) string {
	return "gradebook:" + courseID
}
