package models

import "time"

// Course is a catalog entry owned by exactly one teacher.
type Course struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	ThumbnailURL *string   `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	AccessDays   int       `db:"access_days" json:"access_days"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	Published    bool      `db:"is_published" json:"is_published"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CourseSummary is the catalog projection with teacher name and lesson count.
type CourseSummary struct {
	Course
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	LessonCount int    `db:"lesson_count" json:"lesson_count"`
}

// CourseFilter narrows catalog listings.
type CourseFilter struct {
	TeacherID     string
	Search        string
	PublishedOnly bool
	Page          int
	PageSize      int
}
