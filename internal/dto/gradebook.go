package dto

// GradebookColumn is one gradable lesson.
type GradebookColumn struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	Position int    `json:"position"`
}

// GradebookRow is one enrollment. Grades is keyed by lesson id; a missing
// key means no grade has been recorded.
type GradebookRow struct {
	EnrollmentID string         `json:"enrollment_id"`
	UserID       string         `json:"user_id"`
	StudentName  string         `json:"student_name"`
	StudentEmail string         `json:"student_email"`
	IsActive     bool           `json:"is_active"`
	Grades       map[string]int `json:"grades"`
}

// Gradebook is the per-course student by gradable-lesson matrix.
type Gradebook struct {
	CourseID string            `json:"course_id"`
	Columns  []GradebookColumn `json:"columns"`
	Rows     []GradebookRow    `json:"rows"`
}

// GradebookExportQuery selects the export format.
type GradebookExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf xlsx"`
}
