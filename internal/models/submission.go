package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Submission is one quiz attempt. Any number may exist per (user, lesson).
type Submission struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	LessonID    string    `db:"lesson_id" json:"lesson_id"`
	Score       int       `db:"score" json:"score"`
	Answers     IntSlice  `db:"answers" json:"answers"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}

// AssignmentSubmission is a file handed in for an assignment lesson.
// Grade and Feedback stay nil until a teacher grades it.
type AssignmentSubmission struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	LessonID    string     `db:"lesson_id" json:"lesson_id"`
	FilePath    string     `db:"file_path" json:"-"`
	FileName    string     `db:"file_name" json:"file_name"`
	ContentType string     `db:"content_type" json:"content_type"`
	SizeBytes   int64      `db:"size_bytes" json:"size_bytes"`
	Grade       *int       `db:"grade" json:"grade"`
	Feedback    *string    `db:"feedback" json:"feedback"`
	SubmittedAt time.Time  `db:"submitted_at" json:"submitted_at"`
	GradedAt    *time.Time `db:"graded_at" json:"graded_at,omitempty"`
	GradedBy    *string    `db:"graded_by" json:"graded_by,omitempty"`
}

// IntSlice stores chosen option indexes as a JSON array.
type IntSlice []int

// Value implements driver.Valuer.
func (s IntSlice) Value() (driver.Value, error) {
	if s == nil {
		s = IntSlice{}
	}
	raw, err := json.Marshal([]int(s))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (s *IntSlice) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), (*[]int)(s))
	case []byte:
		return json.Unmarshal(v, (*[]int)(s))
	default:
		return fmt.Errorf("unsupported answers type %T", src)
	}
}

// LessonActivity marks that a user produced some artifact for a lesson.
// Duplicates are expected; completion counting collapses them.
type LessonActivity struct {
	UserID   string `db:"user_id"`
	CourseID string `db:"course_id"`
	LessonID string `db:"lesson_id"`
}

// QuizAttempt is the minimal projection of a quiz submission for grading.
type QuizAttempt struct {
	UserID   string `db:"user_id"`
	LessonID string `db:"lesson_id"`
	Score    int    `db:"score"`
}

// AssignmentGrade is a recorded grade for one (user, lesson).
type AssignmentGrade struct {
	UserID   string `db:"user_id"`
	LessonID string `db:"lesson_id"`
	Grade    int    `db:"grade"`
}

// CourseLessonCount is a per-course lesson total.
type CourseLessonCount struct {
	CourseID string `db:"course_id"`
	Total    int    `db:"total"`
}
