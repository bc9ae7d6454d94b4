package dto

// PostDiscussionRequest posts a message on a course.
type PostDiscussionRequest struct {
	LessonID *string `json:"lesson_id" validate:"omitempty,uuid"`
	Message  string  `json:"message" validate:"required,min=1,max=4000"`
}

// SubmitFeedbackRequest rates a finished course.
type SubmitFeedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=4000"`
}

// CertificateVerification is the public view of a certificate.
type CertificateVerification struct {
	Code        string `json:"code"`
	HolderName  string `json:"holder_name"`
	CourseTitle string `json:"course_title"`
	IssuedAt    string `json:"issued_at"`
	Valid       bool   `json:"valid"`
}
