package models

import "time"

// Discussion is a message posted on a course, optionally about one lesson.
type Discussion struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	LessonID  *string   `db:"lesson_id" json:"lesson_id,omitempty"`
	UserID    string    `db:"user_id" json:"user_id"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DiscussionDetail adds the author's name and role.
type DiscussionDetail struct {
	Discussion
	AuthorName string   `db:"author_name" json:"author_name"`
	AuthorRole UserRole `db:"author_role" json:"author_role"`
}

// CourseFeedback is a one-time rating given after finishing a course.
type CourseFeedback struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
