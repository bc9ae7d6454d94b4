package dto

import "time"

// EnrollmentSummary is returned by enroll, toggle and extend.
type EnrollmentSummary struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CourseID   string    `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsActive   bool      `json:"is_active"`
}

// ExtendEnrollmentRequest adds days to the stored expiry.
type ExtendEnrollmentRequest struct {
	Days int `json:"days" validate:"required,min=1,max=3650"`
}

// ToggleEnrollmentRequest optionally forces the active flag. Without a
// value the current flag is inverted.
type ToggleEnrollmentRequest struct {
	IsActive *bool `json:"is_active"`
}

// UpdateEnrollmentNotesRequest replaces the teacher's notes.
type UpdateEnrollmentNotesRequest struct {
	Notes string `json:"notes" validate:"max=4000"`
}
