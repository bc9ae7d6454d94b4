package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

const assignmentFormField = "file"

type submissionService interface {
	SubmitQuiz(ctx context.Context, user *models.User, lessonID string, req dto.SubmitQuizRequest) (*dto.QuizResult, error)
	SubmitAssignment(ctx context.Context, user *models.User, lessonID string, upload service.AssignmentUpload) (*models.AssignmentSubmission, error)
	GradeAssignment(ctx context.Context, actor *models.User, submissionID string, req dto.GradeAssignmentRequest) (*models.AssignmentSubmission, error)
	DownloadURL(ctx context.Context, actor *models.User, submissionID string) (*dto.DownloadLink, error)
	ResolveFile(ctx context.Context, token string) (*service.StoredFile, error)
}

// SubmissionHandler serves quiz attempts, assignment uploads and grading.
type SubmissionHandler struct {
	submissions submissionService
}

// NewSubmissionHandler constructs SubmissionHandler.
func NewSubmissionHandler(submissions submissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

// SubmitQuiz godoc
// @Summary Submit a quiz attempt
// @Description Scores the answers against the stored questions and records the attempt
// @Tags Submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Param payload body dto.SubmitQuizRequest true "Answers keyed by question id"
// @Success 201 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /lessons/{id}/quiz/submit [post]
func (h *SubmissionHandler) SubmitQuiz(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	var req dto.SubmitQuizRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.submissions.SubmitQuiz(c.Request.Context(), user, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// SubmitAssignment godoc
// @Summary Upload an assignment
// @Description Replaces any earlier upload for the same lesson
// @Tags Submissions
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Param file formData file true "Assignment file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /lessons/{id}/assignment [post]
func (h *SubmissionHandler) SubmitAssignment(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	header, err := c.FormFile(assignmentFormField)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload"))
		return
	}
	defer file.Close()

	submission, err := h.submissions.SubmitAssignment(c.Request.Context(), user, c.Param("id"), service.AssignmentUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// Grade godoc
// @Summary Grade an assignment submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Param payload body dto.GradeAssignmentRequest true "Grade"
// @Success 200 {object} response.Envelope
// @Router /assignment-submissions/{id}/grade [put]
func (h *SubmissionHandler) Grade(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var req dto.GradeAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	submission, err := h.submissions.GradeAssignment(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Download godoc
// @Summary Signed download link for a submission
// @Tags Submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /assignment-submissions/{id}/download [get]
func (h *SubmissionHandler) Download(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	link, err := h.submissions.DownloadURL(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// ServeFile godoc
// @Summary Serve a signed file
// @Tags Files
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /files/{token} [get]
func (h *SubmissionHandler) ServeFile(c *gin.Context) {
	file, err := h.submissions.ResolveFile(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	if file.ContentType != "" {
		c.Header("Content-Type", file.ContentType)
	}
	c.FileAttachment(file.Path, file.FileName)
}
