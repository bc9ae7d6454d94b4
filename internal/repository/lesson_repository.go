package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lms-api/internal/models"
)

const lessonColumns = `id, course_id, title, type, content, media_url, position, due_date, target_students, created_at, updated_at`

// LessonRepository persists lessons and their quiz questions.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs the repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// FindByID returns a lesson by id.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find lesson: %w", err)
	}
	return &lesson, nil
}

// ListByCourse returns a course's lessons in position order.
func (r *LessonRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE course_id = $1 ORDER BY position ASC, created_at ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, courseID); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// ListGradable returns quiz and assignment lessons in position order.
func (r *LessonRepository) ListGradable(ctx context.Context, courseID string) ([]models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE course_id = $1 AND type IN ('quiz', 'assignment') ORDER BY position ASC, created_at ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, courseID); err != nil {
		return nil, fmt.Errorf("list gradable lessons: %w", err)
	}
	return lessons, nil
}

// CountByCourse returns the lesson total of one course.
func (r *LessonRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM lessons WHERE course_id = $1`, courseID); err != nil {
		return 0, fmt.Errorf("count lessons: %w", err)
	}
	return total, nil
}

// CountByCourses returns lesson totals for many courses in one query.
// Courses without lessons are absent from the result.
func (r *LessonRepository) CountByCourses(ctx context.Context, courseIDs []string) ([]models.CourseLessonCount, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT course_id, COUNT(*) AS total FROM lessons WHERE course_id = ANY($1) GROUP BY course_id`
	var counts []models.CourseLessonCount
	if err := r.db.SelectContext(ctx, &counts, query, pq.Array(courseIDs)); err != nil {
		return nil, fmt.Errorf("count lessons by course: %w", err)
	}
	return counts, nil
}

// NextPosition returns the position after the last lesson of a course.
func (r *LessonRepository) NextPosition(ctx context.Context, courseID string) (int, error) {
	var next int
	if err := r.db.GetContext(ctx, &next, `SELECT COALESCE(MAX(position) + 1, 0) FROM lessons WHERE course_id = $1`, courseID); err != nil {
		return 0, fmt.Errorf("next lesson position: %w", err)
	}
	return next, nil
}

// Create inserts a lesson.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lesson.CreatedAt = now
	lesson.UpdatedAt = now
	const query = `INSERT INTO lessons (id, course_id, title, type, content, media_url, position, due_date, target_students, created_at, updated_at)
VALUES (:id, :course_id, :title, :type, :content, :media_url, :position, :due_date, :target_students, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// Update stores the mutable lesson fields.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET title = :title, content = :content, media_url = :media_url, position = :position,
due_date = :due_date, target_students = :target_students, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return nil
}

// Delete removes a lesson and, through FKs, its questions and submissions.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListQuestions returns a quiz lesson's questions in order.
func (r *LessonRepository) ListQuestions(ctx context.Context, lessonID string) ([]models.QuizQuestion, error) {
	const query = `SELECT id, lesson_id, question, options, correct_index, position, created_at
FROM quiz_questions WHERE lesson_id = $1 ORDER BY position ASC, created_at ASC`
	var questions []models.QuizQuestion
	if err := r.db.SelectContext(ctx, &questions, query, lessonID); err != nil {
		return nil, fmt.Errorf("list quiz questions: %w", err)
	}
	return questions, nil
}

// CreateQuestion inserts a quiz question.
func (r *LessonRepository) CreateQuestion(ctx context.Context, q *models.QuizQuestion) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	q.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO quiz_questions (id, lesson_id, question, options, correct_index, position, created_at)
VALUES (:id, :lesson_id, :question, :options, :correct_index, :position, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, q); err != nil {
		return fmt.Errorf("create quiz question: %w", err)
	}
	return nil
}
