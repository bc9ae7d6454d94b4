package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-api/internal/models"
)

const enrollmentColumns = `id, user_id, course_id, enrolled_at, expires_at, is_active, teacher_notes`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Upsert creates the (user, course) enrollment or reactivates the existing
// row with a fresh expiry. The unique index on (user_id, course_id) makes
// concurrent calls converge on one row.
func (r *EnrollmentRepository) Upsert(ctx context.Context, userID, courseID string, enrolledAt, expiresAt time.Time) (*models.Enrollment, error) {
	const query = `INSERT INTO enrollments (id, user_id, course_id, enrolled_at, expires_at, is_active)
VALUES ($1, $2, $3, $4, $5, TRUE)
ON CONFLICT (user_id, course_id)
DO UPDATE SET is_active = TRUE, expires_at = EXCLUDED.expires_at
RETURNING ` + enrollmentColumns
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, uuid.NewString(), userID, courseID, enrolledAt, expiresAt); err != nil {
		return nil, fmt.Errorf("upsert enrollment: %w", err)
	}
	return &enrollment, nil
}

// FindByID returns an enrollment by id.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// FindByUserAndCourse returns the single enrollment for the pair.
func (r *EnrollmentRepository) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 AND course_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment by user and course: %w", err)
	}
	return &enrollment, nil
}

// SetActive stores the active flag.
func (r *EnrollmentRepository) SetActive(ctx context.Context, id string, active bool) (*models.Enrollment, error) {
	query := `UPDATE enrollments SET is_active = $2 WHERE id = $1 RETURNING ` + enrollmentColumns
	return r.returning(ctx, "set enrollment active", query, id, active)
}

// Toggle inverts the active flag in place.
func (r *EnrollmentRepository) Toggle(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `UPDATE enrollments SET is_active = NOT is_active WHERE id = $1 RETURNING ` + enrollmentColumns
	return r.returning(ctx, "toggle enrollment", query, id)
}

// Extend adds days to the stored expiry, whether or not it already passed.
func (r *EnrollmentRepository) Extend(ctx context.Context, id string, days int) (*models.Enrollment, error) {
	query := `UPDATE enrollments SET expires_at = expires_at + ($2 * INTERVAL '1 day') WHERE id = $1 RETURNING ` + enrollmentColumns
	return r.returning(ctx, "extend enrollment", query, id, days)
}

// UpdateNotes replaces the teacher notes.
func (r *EnrollmentRepository) UpdateNotes(ctx context.Context, id string, notes *string) (*models.Enrollment, error) {
	query := `UPDATE enrollments SET teacher_notes = $2 WHERE id = $1 RETURNING ` + enrollmentColumns
	return r.returning(ctx, "update enrollment notes", query, id, notes)
}

// Delete removes the enrollment row. Submissions are keyed by user and
// lesson and are left untouched.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete enrollment rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByCourse returns every enrollment of a course, active or not, with
// student identity.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.user_id, e.course_id, e.enrolled_at, e.expires_at, e.is_active, e.teacher_notes,
       u.full_name AS student_name, u.email AS student_email
FROM enrollments e
JOIN users u ON u.id = e.user_id
WHERE e.course_id = $1
ORDER BY u.full_name ASC, e.id ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, courseID); err != nil {
		return nil, fmt.Errorf("list course enrollments: %w", err)
	}
	return enrollments, nil
}

// ListByUser returns every enrollment of a user joined with course titles.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.EnrolledCourse, error) {
	const query = `SELECT e.id, e.user_id, e.course_id, e.enrolled_at, e.expires_at, e.is_active, e.teacher_notes, c.title
FROM enrollments e
JOIN courses c ON c.id = e.course_id
WHERE e.user_id = $1
ORDER BY e.enrolled_at DESC`
	var enrollments []models.EnrolledCourse
	if err := r.db.SelectContext(ctx, &enrollments, query, userID); err != nil {
		return nil, fmt.Errorf("list user enrollments: %w", err)
	}
	return enrollments, nil
}

// CountExpiringBetween counts active enrollments whose expiry falls in [from, to).
func (r *EnrollmentRepository) CountExpiringBetween(ctx context.Context, from, to time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE is_active = TRUE AND expires_at >= $1 AND expires_at < $2`
	var total int
	if err := r.db.GetContext(ctx, &total, query, from, to); err != nil {
		return 0, fmt.Errorf("count expiring enrollments: %w", err)
	}
	return total, nil
}

func (r *EnrollmentRepository) returning(ctx context.Context, op, query string, args ...interface{}) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &enrollment, nil
}
