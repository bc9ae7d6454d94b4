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

// DiscussionRepository persists course discussions and course feedback.
type DiscussionRepository struct {
	db *sqlx.DB
}

// NewDiscussionRepository constructs the repository.
func NewDiscussionRepository(db *sqlx.DB) *DiscussionRepository {
	return &DiscussionRepository{db: db}
}

// ListByCourse returns course messages oldest first.
func (r *DiscussionRepository) ListByCourse(ctx context.Context, courseID string, limit int) ([]models.DiscussionDetail, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	const query = `SELECT d.id, d.course_id, d.lesson_id, d.user_id, d.message, d.created_at,
       u.full_name AS author_name, u.role AS author_role
FROM discussions d
JOIN users u ON u.id = d.user_id
WHERE d.course_id = $1
ORDER BY d.created_at ASC
LIMIT $2`
	var items []models.DiscussionDetail
	if err := r.db.SelectContext(ctx, &items, query, courseID, limit); err != nil {
		return nil, fmt.Errorf("list discussions: %w", err)
	}
	return items, nil
}

// Create stores a message.
func (r *DiscussionRepository) Create(ctx context.Context, d *models.Discussion) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO discussions (id, course_id, lesson_id, user_id, message, created_at)
VALUES (:id, :course_id, :lesson_id, :user_id, :message, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("create discussion: %w", err)
	}
	return nil
}

// CreateFeedback stores a course rating. A repeat for the same
// (user, course) yields ErrDuplicate.
func (r *DiscussionRepository) CreateFeedback(ctx context.Context, f *models.CourseFeedback) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_feedback (id, user_id, course_id, rating, comment, created_at)
VALUES (:id, :user_id, :course_id, :rating, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, f); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create course feedback: %w", err)
	}
	return nil
}

// HasFeedback reports whether the user already rated the course.
func (r *DiscussionRepository) HasFeedback(ctx context.Context, userID, courseID string) (bool, error) {
	var id string
	err := r.db.GetContext(ctx, &id, `SELECT id FROM course_feedback WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find course feedback: %w", err)
	}
	return true, nil
}

// FeedbackCourses returns the subset of courseIDs the user has rated.
func (r *DiscussionRepository) FeedbackCourses(ctx context.Context, userID string, courseIDs []string) (map[string]bool, error) {
	rated := make(map[string]bool)
	if len(courseIDs) == 0 {
		return rated, nil
	}
	var ids []string
	const query = `SELECT course_id FROM course_feedback WHERE user_id = $1 AND course_id = ANY($2)`
	if err := r.db.SelectContext(ctx, &ids, query, userID, pq.Array(courseIDs)); err != nil {
		return nil, fmt.Errorf("list rated courses: %w", err)
	}
	for _, id := range ids {
		rated[id] = true
	}
	return rated, nil
}
