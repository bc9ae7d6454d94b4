package models

import "time"

// Enrollment is a student's time-bounded, togglable access to one course.
// At most one row exists per (user_id, course_id).
type Enrollment struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	EnrolledAt   time.Time `db:"enrolled_at" json:"enrolled_at"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	Active       bool      `db:"is_active" json:"is_active"`
	TeacherNotes *string   `db:"teacher_notes" json:"teacher_notes,omitempty"`
}

// ExpiredAt reports whether the access window has closed at now.
func (e *Enrollment) ExpiredAt(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// EnrollmentDetail enriches Enrollment with student info.
type EnrollmentDetail struct {
	Enrollment
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
}

// EnrolledCourse joins an enrollment with its course for dashboards.
type EnrolledCourse struct {
	Enrollment
	Title string `db:"title" json:"title"`
}
