package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, user *models.User, courseID string) (*models.Enrollment, error)
	Toggle(ctx context.Context, actor *models.User, id string, active *bool) (*models.Enrollment, error)
	Extend(ctx context.Context, actor *models.User, id string, req dto.ExtendEnrollmentRequest) (*models.Enrollment, error)
	Delete(ctx context.Context, actor *models.User, id string) error
	UpdateNotes(ctx context.Context, actor *models.User, id string, req dto.UpdateEnrollmentNotesRequest) (*models.Enrollment, error)
	ListByCourse(ctx context.Context, actor *models.User, courseID string) ([]models.EnrollmentDetail, error)
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Enroll godoc
// @Summary Enroll in a course
// @Description Creates the caller's enrollment or reactivates it with a fresh access window
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/enroll [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollmentSummary(enrollment), nil)
}

// ListByCourse godoc
// @Summary List course enrollments
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id}/enrollments [get]
func (h *EnrollmentHandler) ListByCourse(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	enrollments, err := h.enrollments.ListByCourse(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// Toggle godoc
// @Summary Toggle enrollment active flag
// @Description Inverts the flag, or forces it when is_active is given
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Param payload body dto.ToggleEnrollmentRequest false "Optional target state"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/toggle [put]
func (h *EnrollmentHandler) Toggle(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var req dto.ToggleEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.Toggle(c.Request.Context(), actor, c.Param("id"), req.IsActive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollmentSummary(enrollment), nil)
}

// UpdateNotes godoc
// @Summary Replace teacher notes on an enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Param payload body dto.UpdateEnrollmentNotesRequest true "Notes"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/notes [put]
func (h *EnrollmentHandler) UpdateNotes(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var req dto.UpdateEnrollmentNotesRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.UpdateNotes(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Extend godoc
// @Summary Extend enrollment access
// @Description Adds days to the stored expiry
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Param payload body dto.ExtendEnrollmentRequest true "Extension"
// @Success 200 {object} response.Envelope
// @Router /admin/enrollments/{id}/extend [put]
func (h *EnrollmentHandler) Extend(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var req dto.ExtendEnrollmentRequest
	if !bindJSON(c, &req) {
		return
	}
	enrollment, err := h.enrollments.Extend(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollmentSummary(enrollment), nil)
}

// Delete godoc
// @Summary Delete enrollment
// @Tags Enrollments
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 204
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	if err := h.enrollments.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
