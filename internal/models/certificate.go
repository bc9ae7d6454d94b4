package models

import "time"

// CertificateStatus tracks asynchronous PDF rendering.
type CertificateStatus string

const (
	CertificateStatusPending CertificateStatus = "PENDING"
	CertificateStatusReady   CertificateStatus = "READY"
	CertificateStatusFailed  CertificateStatus = "FAILED"
)

// Certificate is issued once per (user, course) on full completion.
type Certificate struct {
	ID        string            `db:"id" json:"id"`
	UserID    string            `db:"user_id" json:"user_id"`
	CourseID  string            `db:"course_id" json:"course_id"`
	Code      string            `db:"code" json:"code"`
	Status    CertificateStatus `db:"status" json:"status"`
	FilePath  *string           `db:"file_path" json:"-"`
	IssuedAt  time.Time         `db:"issued_at" json:"issued_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// CertificateDetail adds the printable holder and course names.
type CertificateDetail struct {
	Certificate
	HolderName  string `db:"holder_name" json:"holder_name"`
	CourseTitle string `db:"course_title" json:"course_title"`
}
