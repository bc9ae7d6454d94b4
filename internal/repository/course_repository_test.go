package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
)

var lessonColumnNames = []string{"id", "course_id", "title", "type", "content", "media_url", "position", "due_date", "target_students", "created_at", "updated_at"}

func TestCourseRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE id = $1")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "thumbnail_url", "access_days", "teacher_id", "is_published", "created_at", "updated_at"}).
			AddRow("c1", "Go 101", "intro", nil, 30, "t1", true, now, now))

	course, err := repo.FindByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 30, course.AccessDays)
	assert.Equal(t, "t1", course.TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListPublished(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM courses c JOIN users u ON u.id = c.teacher_id WHERE c.is_published = TRUE ORDER BY c.created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "thumbnail_url", "access_days", "teacher_id", "is_published", "created_at", "updated_at", "teacher_name", "lesson_count"}).
			AddRow("c1", "Go 101", "intro", nil, 30, "t1", true, now, now, "Teacher", 4))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses c JOIN users u ON u.id = c.teacher_id WHERE c.is_published = TRUE")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{PublishedOnly: true})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, 4, courses[0].LessonCount)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).WithArgs("c9").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "c9"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryScansTargetStudents(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM lessons WHERE course_id = $1 AND type IN ('quiz', 'assignment') ORDER BY position ASC")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(lessonColumnNames).
			AddRow("l1", "c1", "Quiz", "quiz", "", nil, 1, nil, nil, now, now).
			AddRow("l2", "c1", "Essay", "assignment", "", nil, 2, now, `["u1"]`, now, now))

	lessons, err := repo.ListGradable(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.True(t, lessons[0].TargetStudents.Empty())
	assert.True(t, lessons[1].VisibleTo("u1"))
	assert.False(t, lessons[1].VisibleTo("u2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryCountByCourses(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT course_id, COUNT(*) AS total FROM lessons WHERE course_id = ANY($1) GROUP BY course_id")).
		WithArgs(pq.Array([]string{"c1", "c2"})).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "total"}).AddRow("c1", 3))

	counts, err := repo.CountByCourses(context.Background(), []string{"c1", "c2"})
	require.NoError(t, err)
	assert.Equal(t, []models.CourseLessonCount{{CourseID: "c1", Total: 3}}, counts)

	none, err := repo.CountByCourses(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryCreateQuestionStoresOptionsAsJSON(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectExec("INSERT INTO quiz_questions").
		WithArgs(sqlmock.AnyArg(), "l1", "2+2?", `["3","4"]`, 1, 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	q := &models.QuizQuestion{LessonID: "l1", Question: "2+2?", Options: models.StringSlice{"3", "4"}, CorrectIndex: 1}
	require.NoError(t, repo.CreateQuestion(context.Background(), q))
	assert.NotEmpty(t, q.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
