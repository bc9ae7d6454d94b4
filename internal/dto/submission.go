package dto

import "time"

// SubmitQuizRequest carries one chosen option index per question, keyed by
// question id.
type SubmitQuizRequest struct {
	Answers map[string]int `json:"answers" validate:"required"`
}

// QuizResult reports the stored attempt.
type QuizResult struct {
	SubmissionID string    `json:"submission_id"`
	Score        int       `json:"score"`
	Correct      int       `json:"correct"`
	Total        int       `json:"total"`
	CompletedAt  time.Time `json:"completed_at"`
}

// GradeAssignmentRequest records a grade and optional feedback.
type GradeAssignmentRequest struct {
	Grade    *int   `json:"grade" validate:"required,min=0,max=100"`
	Feedback string `json:"feedback" validate:"max=4000"`
}

// DownloadLink is a short-lived signed file URL.
type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
