package dto

import "time"

// CreateCourseRequest creates a course. TeacherID is honoured for admins only.
type CreateCourseRequest struct {
	Title        string  `json:"title" validate:"required,min=3,max=200"`
	Description  string  `json:"description" validate:"max=10000"`
	ThumbnailURL *string `json:"thumbnail_url" validate:"omitempty,url"`
	AccessDays   *int    `json:"access_days" validate:"omitempty,min=1,max=3650"`
	TeacherID    string  `json:"teacher_id" validate:"omitempty,uuid"`
	Published    *bool   `json:"is_published"`
}

// UpdateCourseRequest patches a course.
type UpdateCourseRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=3,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=10000"`
	ThumbnailURL *string `json:"thumbnail_url" validate:"omitempty,url"`
	AccessDays   *int    `json:"access_days" validate:"omitempty,min=1,max=3650"`
	Published    *bool   `json:"is_published"`
}

// CourseQuery filters the public catalog.
type CourseQuery struct {
	Search    string `form:"search"`
	TeacherID string `form:"teacher_id"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}

// CreateLessonRequest adds a lesson to a course.
type CreateLessonRequest struct {
	Title          string     `json:"title" validate:"required,min=1,max=200"`
	Type           string     `json:"type" validate:"required,oneof=video pdf text quiz assignment"`
	Content        string     `json:"content"`
	MediaURL       *string    `json:"media_url" validate:"omitempty,url"`
	Position       *int       `json:"position" validate:"omitempty,min=0"`
	DueDate        *time.Time `json:"due_date"`
	TargetStudents []string   `json:"target_students" validate:"omitempty,dive,required"`
}

// UpdateLessonRequest patches a lesson. A non-nil TargetStudents replaces
// the allow-list; an empty array clears it.
type UpdateLessonRequest struct {
	Title          *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Content        *string    `json:"content"`
	MediaURL       *string    `json:"media_url" validate:"omitempty,url"`
	Position       *int       `json:"position" validate:"omitempty,min=0"`
	DueDate        *time.Time `json:"due_date"`
	TargetStudents *[]string  `json:"target_students"`
}

// CreateQuizQuestionRequest adds a multiple choice question.
type CreateQuizQuestionRequest struct {
	Question     string   `json:"question" validate:"required,max=2000"`
	Options      []string `json:"options" validate:"required,min=2,max=10,dive,required"`
	CorrectIndex int      `json:"correct_index" validate:"min=0"`
	Position     *int     `json:"position" validate:"omitempty,min=0"`
}
