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

const certificateColumns = `id, user_id, course_id, code, status, file_path, issued_at, updated_at`

const certificateDetailQuery = `SELECT c.id, c.user_id, c.course_id, c.code, c.status, c.file_path, c.issued_at, c.updated_at,
       u.full_name AS holder_name, co.title AS course_title
FROM certificates c
JOIN users u ON u.id = c.user_id
JOIN courses co ON co.id = c.course_id`

// CertificateRepository persists issued certificates.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository constructs the repository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// CreateIfAbsent inserts a pending certificate for (user, course) or returns
// the existing one. created reports whether a new row was written.
func (r *CertificateRepository) CreateIfAbsent(ctx context.Context, userID, courseID string, issuedAt time.Time) (*models.Certificate, bool, error) {
	insert := `INSERT INTO certificates (id, user_id, course_id, code, status, issued_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (user_id, course_id) DO NOTHING
RETURNING ` + certificateColumns
	var cert models.Certificate
	err := r.db.GetContext(ctx, &cert, insert, uuid.NewString(), userID, courseID, uuid.NewString(), models.CertificateStatusPending, issuedAt)
	if err == nil {
		return &cert, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, fmt.Errorf("create certificate: %w", err)
	}
	existing := `SELECT ` + certificateColumns + ` FROM certificates WHERE user_id = $1 AND course_id = $2`
	if err := r.db.GetContext(ctx, &cert, existing, userID, courseID); err != nil {
		return nil, false, fmt.Errorf("load existing certificate: %w", err)
	}
	return &cert, false, nil
}

// FindDetail returns a certificate with holder and course names by id.
func (r *CertificateRepository) FindDetail(ctx context.Context, id string) (*models.CertificateDetail, error) {
	return r.detail(ctx, certificateDetailQuery+` WHERE c.id = $1`, id)
}

// FindByCode returns a certificate with holder and course names by code.
func (r *CertificateRepository) FindByCode(ctx context.Context, code string) (*models.CertificateDetail, error) {
	return r.detail(ctx, certificateDetailQuery+` WHERE c.code = $1`, code)
}

// ListPending returns certificates still waiting for rendering.
func (r *CertificateRepository) ListPending(ctx context.Context, limit int) ([]models.Certificate, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE status = $1 ORDER BY issued_at ASC LIMIT $2`
	var certs []models.Certificate
	if err := r.db.SelectContext(ctx, &certs, query, models.CertificateStatusPending, limit); err != nil {
		return nil, fmt.Errorf("list pending certificates: %w", err)
	}
	return certs, nil
}

// MarkRendered stores the rendered file and flips the status.
func (r *CertificateRepository) MarkRendered(ctx context.Context, id string, status models.CertificateStatus, filePath *string) error {
	const query = `UPDATE certificates SET status = $2, file_path = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, filePath, time.Now().UTC()); err != nil {
		return fmt.Errorf("update certificate status: %w", err)
	}
	return nil
}

func (r *CertificateRepository) detail(ctx context.Context, query string, arg string) (*models.CertificateDetail, error) {
	var cert models.CertificateDetail
	if err := r.db.GetContext(ctx, &cert, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return &cert, nil
}
