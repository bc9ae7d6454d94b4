package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// LessonType enumerates lesson content kinds.
type LessonType string

const (
	LessonTypeVideo      LessonType = "video"
	LessonTypePDF        LessonType = "pdf"
	LessonTypeText       LessonType = "text"
	LessonTypeQuiz       LessonType = "quiz"
	LessonTypeAssignment LessonType = "assignment"
)

// Valid reports whether t is a known lesson type.
func (t LessonType) Valid() bool {
	switch t {
	case LessonTypeVideo, LessonTypePDF, LessonTypeText, LessonTypeQuiz, LessonTypeAssignment:
		return true
	}
	return false
}

// Gradable reports whether lessons of this type produce a scored artifact.
func (t LessonType) Gradable() bool {
	return t == LessonTypeQuiz || t == LessonTypeAssignment
}

// StudentSet is the allow-list of user ids an assignment is targeted at.
// An empty set means the lesson is visible to every enrolled student.
// It is persisted as a JSON array in a text column.
type StudentSet map[string]struct{}

// NewStudentSet builds a set from ids, dropping blanks and duplicates.
func NewStudentSet(ids ...string) StudentSet {
	set := make(StudentSet, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// Contains reports whether id is in the set.
func (s StudentSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Empty reports whether the set has no members.
func (s StudentSet) Empty() bool {
	return len(s) == 0
}

// IDs returns the members sorted for stable output.
func (s StudentSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MarshalJSON encodes the set as a sorted array.
func (s StudentSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON decodes an array of ids.
func (s *StudentSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("target students must be an array of ids: %w", err)
	}
	*s = NewStudentSet(ids...)
	return nil
}

// Value implements driver.Valuer. Empty sets are stored as NULL.
func (s StudentSet) Value() (driver.Value, error) {
	if s.Empty() {
		return nil, nil
	}
	raw, err := json.Marshal(s.IDs())
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (s *StudentSet) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = StudentSet{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported target_students type %T", src)
	}
	if len(raw) == 0 {
		*s = StudentSet{}
		return nil
	}
	return s.UnmarshalJSON(raw)
}

// Lesson belongs to exactly one course and is ordered by Position.
type Lesson struct {
	ID             string     `db:"id" json:"id"`
	CourseID       string     `db:"course_id" json:"course_id"`
	Title          string     `db:"title" json:"title"`
	Type           LessonType `db:"type" json:"type"`
	Content        string     `db:"content" json:"content"`
	MediaURL       *string    `db:"media_url" json:"media_url,omitempty"`
	Position       int        `db:"position" json:"position"`
	DueDate        *time.Time `db:"due_date" json:"due_date,omitempty"`
	TargetStudents StudentSet `db:"target_students" json:"target_students"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// VisibleTo reports whether a student may see the lesson.
func (l *Lesson) VisibleTo(userID string) bool {
	return l.TargetStudents.Empty() || l.TargetStudents.Contains(userID)
}

// QuizQuestion is a multiple choice item on a quiz lesson.
type QuizQuestion struct {
	ID           string      `db:"id" json:"id"`
	LessonID     string      `db:"lesson_id" json:"lesson_id"`
	Question     string      `db:"question" json:"question"`
	Options      StringSlice `db:"options" json:"options"`
	CorrectIndex int         `db:"correct_index" json:"-"`
	Position     int         `db:"position" json:"position"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}

// StringSlice stores a list of strings as a JSON array.
type StringSlice []string

// Value implements driver.Valuer.
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		s = StringSlice{}
	}
	raw, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (s *StringSlice) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), (*[]string)(s))
	case []byte:
		return json.Unmarshal(v, (*[]string)(s))
	default:
		return fmt.Errorf("unsupported options type %T", src)
	}
}
