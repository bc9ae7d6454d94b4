package dto

import "time"

// DashboardItem is one enrolled course on the student dashboard.
type DashboardItem struct {
	CourseID           string    `json:"course_id"`
	Title              string    `json:"title"`
	TotalLessons       int       `json:"total_lessons"`
	CompletedLessons   int       `json:"completed_lessons"`
	ProgressPercentage int       `json:"progress_percentage"`
	ExpiresAt          time.Time `json:"expires_at"`
	IsActive           bool      `json:"is_active"`
	Expired            bool      `json:"expired"`
	FeedbackDue        bool      `json:"feedback_due"`
}

// CourseProgress is the completion summary for one (user, course).
type CourseProgress struct {
	CourseID           string `json:"course_id"`
	TotalLessons       int    `json:"total_lessons"`
	CompletedLessons   int    `json:"completed_lessons"`
	ProgressPercentage int    `json:"progress_percentage"`
	Completed          bool   `json:"completed"`
	FeedbackSubmitted  bool   `json:"feedback_submitted"`
}
