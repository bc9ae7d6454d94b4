package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/storage"
)

func intPtr(v int) *int { return &v }

func TestBestQuizScores(t *testing.T) {
	best := BestQuizScores([]models.QuizAttempt{
		{UserID: "u1", LessonID: "q1", Score: 40},
		{UserID: "u1", LessonID: "q1", Score: 90},
		{UserID: "u1", LessonID: "q1", Score: 70},
		{UserID: "u2", LessonID: "q1", Score: 0},
	})
	assert.Equal(t, 90, best["u1"]["q1"])
	score, ok := best["u2"]["q1"]
	assert.True(t, ok)
	assert.Equal(t, 0, score)
}

func TestAssembleGradebook(t *testing.T) {
	lessons := []models.Lesson{
		{ID: "q1", Title: "Quiz", Type: models.LessonTypeQuiz, Position: 1},
		{ID: "v1", Title: "Video", Type: models.LessonTypeVideo, Position: 2},
		{ID: "a1", Title: "Essay", Type: models.LessonTypeAssignment, Position: 3},
	}
	enrollments := []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{ID: "e1", UserID: "u1", Active: true}, StudentName: "Ann"},
		{Enrollment: models.Enrollment{ID: "e2", UserID: "u2", Active: false}, StudentName: "Bob"},
	}
	attempts := []models.QuizAttempt{{UserID: "u1", LessonID: "q1", Score: 55}, {UserID: "u1", LessonID: "q1", Score: 80}}
	graded := []models.AssignmentGrade{{UserID: "u2", LessonID: "a1", Grade: 77}}

	book := AssembleGradebook("c1", lessons, enrollments, attempts, graded)
	require.Len(t, book.Columns, 2)
	assert.Equal(t, "q1", book.Columns[0].ID)
	assert.Equal(t, "a1", book.Columns[1].ID)

	require.Len(t, book.Rows, 2)
	assert.Equal(t, map[string]int{"q1": 80}, book.Rows[0].Grades)
	assert.True(t, book.Rows[0].IsActive)
	// inactive enrollments stay in the gradebook
	assert.False(t, book.Rows[1].IsActive)
	assert.Equal(t, map[string]int{"a1": 77}, book.Rows[1].Grades)
}

func newGradebookServiceForTest(t *testing.T, f *fixture) (*GradebookService, *memoryCacheRepo) {
	t.Helper()
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	exporter := NewExportService(store, ExportConfig{}, zap.NewNop(), nil, nil, nil)
	svc := NewGradebookService(f.courses, f.lessons, f.enrollments, f.submissions, cache, exporter, nil, zap.NewNop(), GradebookServiceConfig{})
	return svc, repo
}

func TestGradebookServiceBuild(t *testing.T) {
	f := newFixture()
	f.submissions.quizzes = []models.Submission{
		{UserID: f.student.ID, LessonID: "l-quiz", Score: 60},
		{UserID: f.student.ID, LessonID: "l-quiz", Score: 85},
	}
	f.submissions.assignments["asg-1"] = &models.AssignmentSubmission{ID: "asg-1", UserID: f.student.ID, LessonID: "l-asg"}
	svc, cacheRepo := newGradebookServiceForTest(t, f)
	ctx := context.Background()

	book, cached, err := svc.Build(ctx, f.teacher, f.course.ID)
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, book.Columns, 2)
	require.Len(t, book.Rows, 1)
	assert.Equal(t, 85, book.Rows[0].Grades["l-quiz"])
	_, graded := book.Rows[0].Grades["l-asg"]
	assert.False(t, graded, "ungraded assignment must be omitted")
	assert.Contains(t, cacheRepo.items, "gradebook:"+f.course.ID)

	_, cached, err = svc.Build(ctx, f.admin, f.course.ID)
	require.NoError(t, err)
	assert.True(t, cached)

	svc.Invalidate(ctx, f.course.ID)
	assert.NotContains(t, cacheRepo.items, "gradebook:"+f.course.ID)
}

func TestGradebookServiceBuildLogsCacheWriteFailure(t *testing.T) {
	f := newFixture()
	repo := newMemoryCacheRepo()
	repo.setErr = errors.New("redis down")
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	core, logs := observer.New(zapcore.WarnLevel)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	exporter := NewExportService(store, ExportConfig{}, zap.NewNop(), nil, nil, nil)
	svc := NewGradebookService(f.courses, f.lessons, f.enrollments, f.submissions, cache, exporter, nil, zap.New(core), GradebookServiceConfig{})

	book, cached, err := svc.Build(context.Background(), f.teacher, f.course.ID)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, f.course.ID, book.CourseID)
	assert.Equal(t, 1, logs.FilterMessage("failed to cache gradebook").Len())
}

func TestGradebookServiceBuildRequiresManager(t *testing.T) {
	f := newFixture()
	svc, _ := newGradebookServiceForTest(t, f)

	_, _, err := svc.Build(context.Background(), f.student, f.course.ID)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	_, _, err = svc.Build(context.Background(), f.otherTeacher, f.course.ID)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	_, _, err = svc.Build(context.Background(), f.teacher, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestGradebookServiceExport(t *testing.T) {
	f := newFixture()
	f.submissions.quizzes = []models.Submission{{UserID: f.student.ID, LessonID: "l-quiz", Score: 85}}
	svc, _ := newGradebookServiceForTest(t, f)
	ctx := context.Background()

	file, err := svc.Export(ctx, f.teacher, f.course.ID, dto.GradebookExportQuery{})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))
	assert.NotEmpty(t, file.RelativePath)
	body := string(file.Data)
	assert.Contains(t, body, "Student,Email,Status,1. Quiz,2. Homework")
	assert.Contains(t, body, "Ann Student,ann@example.com,active,85,")

	for _, format := range []string{ExportFormatPDF, ExportFormatXLSX} {
		file, err = svc.Export(ctx, f.admin, f.course.ID, dto.GradebookExportQuery{Format: format})
		require.NoError(t, err, format)
		assert.NotEmpty(t, file.Data, format)
	}

	_, err = svc.Export(ctx, f.teacher, f.course.ID, dto.GradebookExportQuery{Format: "docx"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = svc.Export(ctx, f.student, f.course.ID, dto.GradebookExportQuery{Format: "csv"})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
