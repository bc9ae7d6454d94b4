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

const assignmentColumns = `id, user_id, lesson_id, file_path, file_name, content_type, size_bytes, grade, feedback, submitted_at, graded_at, graded_by`

// SubmissionRepository persists quiz attempts and assignment hand-ins.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// CreateQuizSubmission stores one quiz attempt.
func (r *SubmissionRepository) CreateQuizSubmission(ctx context.Context, sub *models.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	const query = `INSERT INTO submissions (id, user_id, lesson_id, score, answers, completed_at)
VALUES (:id, :user_id, :lesson_id, :score, :answers, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("create quiz submission: %w", err)
	}
	return nil
}

// FindAssignment returns the (user, lesson) hand-in.
func (r *SubmissionRepository) FindAssignment(ctx context.Context, userID, lessonID string) (*models.AssignmentSubmission, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignment_submissions WHERE user_id = $1 AND lesson_id = $2`
	var sub models.AssignmentSubmission
	if err := r.db.GetContext(ctx, &sub, query, userID, lessonID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment submission: %w", err)
	}
	return &sub, nil
}

// FindAssignmentByID returns a hand-in by id.
func (r *SubmissionRepository) FindAssignmentByID(ctx context.Context, id string) (*models.AssignmentSubmission, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignment_submissions WHERE id = $1`
	var sub models.AssignmentSubmission
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment submission by id: %w", err)
	}
	return &sub, nil
}

// UpsertAssignment keeps one row per (user, lesson). A resubmission replaces
// the file and clears any previous grade.
func (r *SubmissionRepository) UpsertAssignment(ctx context.Context, sub *models.AssignmentSubmission) (*models.AssignmentSubmission, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	query := `INSERT INTO assignment_submissions (id, user_id, lesson_id, file_path, file_name, content_type, size_bytes, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id, lesson_id)
DO UPDATE SET file_path = EXCLUDED.file_path, file_name = EXCLUDED.file_name, content_type = EXCLUDED.content_type,
              size_bytes = EXCLUDED.size_bytes, submitted_at = EXCLUDED.submitted_at,
              grade = NULL, feedback = NULL, graded_at = NULL, graded_by = NULL
RETURNING ` + assignmentColumns
	var stored models.AssignmentSubmission
	if err := r.db.GetContext(ctx, &stored, query, sub.ID, sub.UserID, sub.LessonID, sub.FilePath, sub.FileName, sub.ContentType, sub.SizeBytes, sub.SubmittedAt); err != nil {
		return nil, fmt.Errorf("upsert assignment submission: %w", err)
	}
	return &stored, nil
}

// GradeAssignment records a grade and feedback.
func (r *SubmissionRepository) GradeAssignment(ctx context.Context, id string, grade int, feedback *string, gradedBy string, gradedAt time.Time) (*models.AssignmentSubmission, error) {
	query := `UPDATE assignment_submissions SET grade = $2, feedback = $3, graded_by = $4, graded_at = $5 WHERE id = $1 RETURNING ` + assignmentColumns
	var stored models.AssignmentSubmission
	if err := r.db.GetContext(ctx, &stored, query, id, grade, feedback, gradedBy, gradedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("grade assignment submission: %w", err)
	}
	return &stored, nil
}

// ListActivities returns one row per (course, lesson) where the user has a
// quiz attempt or an assignment hand-in, restricted to the given courses.
func (r *SubmissionRepository) ListActivities(ctx context.Context, userID string, courseIDs []string) ([]models.LessonActivity, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT DISTINCT a.user_id, l.course_id, a.lesson_id
FROM (
    SELECT user_id, lesson_id FROM submissions WHERE user_id = $1
    UNION
    SELECT user_id, lesson_id FROM assignment_submissions WHERE user_id = $1
) a
JOIN lessons l ON l.id = a.lesson_id
WHERE l.course_id = ANY($2)`
	var activities []models.LessonActivity
	if err := r.db.SelectContext(ctx, &activities, query, userID, pq.Array(courseIDs)); err != nil {
		return nil, fmt.Errorf("list lesson activities: %w", err)
	}
	return activities, nil
}

// ListQuizAttempts returns every quiz attempt made on a course.
func (r *SubmissionRepository) ListQuizAttempts(ctx context.Context, courseID string) ([]models.QuizAttempt, error) {
	const query = `SELECT s.user_id, s.lesson_id, s.score
FROM submissions s
JOIN lessons l ON l.id = s.lesson_id
WHERE l.course_id = $1 AND l.type = 'quiz'`
	var attempts []models.QuizAttempt
	if err := r.db.SelectContext(ctx, &attempts, query, courseID); err != nil {
		return nil, fmt.Errorf("list quiz attempts: %w", err)
	}
	return attempts, nil
}

// ListAssignmentGrades returns recorded assignment grades for a course.
// Ungraded hand-ins are excluded.
func (r *SubmissionRepository) ListAssignmentGrades(ctx context.Context, courseID string) ([]models.AssignmentGrade, error) {
	const query = `SELECT a.user_id, a.lesson_id, a.grade
FROM assignment_submissions a
JOIN lessons l ON l.id = a.lesson_id
WHERE l.course_id = $1 AND l.type = 'assignment' AND a.grade IS NOT NULL`
	var grades []models.AssignmentGrade
	if err := r.db.SelectContext(ctx, &grades, query, courseID); err != nil {
		return nil, fmt.Errorf("list assignment grades: %w", err)
	}
	return grades, nil
}
