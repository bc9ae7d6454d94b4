package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
)

func TestCompletionPercentage(t *testing.T) {
	assert.Equal(t, 0, CompletionPercentage(0, 0))
	assert.Equal(t, 0, CompletionPercentage(3, 0))
	assert.Equal(t, 33, CompletionPercentage(1, 3))
	assert.Equal(t, 67, CompletionPercentage(2, 3))
	assert.Equal(t, 100, CompletionPercentage(3, 3))
	assert.Equal(t, 100, CompletionPercentage(5, 3))
}

func TestCompletedLessonCountIsDistinct(t *testing.T) {
	activities := []models.LessonActivity{
		{LessonID: "a"}, {LessonID: "a"}, {LessonID: "b"}, {LessonID: "foreign"},
	}
	assert.Equal(t, 2, CompletedLessonCount(activities, []string{"a", "b", "c"}))
	assert.Equal(t, 0, CompletedLessonCount(nil, []string{"a"}))
}

func TestCompletedByCourse(t *testing.T) {
	counts := CompletedByCourse([]models.LessonActivity{
		{CourseID: "c1", LessonID: "a"},
		{CourseID: "c1", LessonID: "a"},
		{CourseID: "c1", LessonID: "b"},
		{CourseID: "c2", LessonID: "x"},
	})
	assert.Equal(t, map[string]int{"c1": 2, "c2": 1}, counts)
}

func TestProgressServiceComputeProgress(t *testing.T) {
	f := newFixture()
	svc := NewProgressService(f.lessons, f.submissions, f.enrollments, f.community, nil)
	ctx := context.Background()

	progress, err := svc.ComputeProgress(ctx, f.student.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, progress.TotalLessons)
	assert.Equal(t, 0, progress.ProgressPercentage)

	// two attempts on the same quiz count once
	f.submissions.quizzes = append(f.submissions.quizzes,
		models.Submission{UserID: f.student.ID, LessonID: "l-quiz", Score: 10},
		models.Submission{UserID: f.student.ID, LessonID: "l-quiz", Score: 90},
	)
	progress, err = svc.ComputeProgress(ctx, f.student.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.CompletedLessons)
	assert.Equal(t, 33, progress.ProgressPercentage)
	assert.False(t, progress.Completed)
}

func TestProgressServiceDashboard(t *testing.T) {
	f := newFixture()
	f.courses.courses["course-2"] = &models.Course{ID: "course-2", TeacherID: f.teacher.ID, AccessDays: 10}
	f.lessons.lessons["c2-quiz"] = &models.Lesson{ID: "c2-quiz", CourseID: "course-2", Type: models.LessonTypeQuiz, Position: 1}
	f.enrollments.rows["enr-2"] = &models.Enrollment{ID: "enr-2", UserID: f.student.ID, CourseID: "course-2", ExpiresAt: fixedNow.Add(-1), Active: true}
	f.enrollments.rows["enr-3"] = &models.Enrollment{ID: "enr-3", UserID: f.student.ID, CourseID: "course-empty", ExpiresAt: fixedNow.AddDate(0, 0, 1), Active: false}
	f.submissions.quizzes = append(f.submissions.quizzes, models.Submission{UserID: f.student.ID, LessonID: "c2-quiz", Score: 70})

	svc := NewProgressService(f.lessons, f.submissions, f.enrollments, f.community, nil)
	svc.now = fixedClock

	items, err := svc.Dashboard(context.Background(), f.student.ID, true)
	require.NoError(t, err)
	require.Len(t, items, 3)

	byCourse := map[string]int{}
	for i, item := range items {
		byCourse[item.CourseID] = i
	}
	first := items[byCourse[f.course.ID]]
	assert.Equal(t, 3, first.TotalLessons)
	assert.Equal(t, 0, first.ProgressPercentage)
	assert.False(t, first.FeedbackDue)

	second := items[byCourse["course-2"]]
	assert.Equal(t, 100, second.ProgressPercentage)
	assert.True(t, second.Expired)
	assert.True(t, second.FeedbackDue)

	empty := items[byCourse["course-empty"]]
	assert.Equal(t, 0, empty.TotalLessons)
	assert.Equal(t, 0, empty.ProgressPercentage)
	assert.False(t, empty.IsActive)

	f.community.feedback = append(f.community.feedback, models.CourseFeedback{UserID: f.student.ID, CourseID: "course-2", Rating: 5})
	items, err = svc.Dashboard(context.Background(), f.student.ID, true)
	require.NoError(t, err)
	assert.False(t, items[byCourse["course-2"]].FeedbackDue)

	items, err = svc.Dashboard(context.Background(), f.outsider.ID, true)
	require.NoError(t, err)
	assert.Empty(t, items)
}
