package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

type courseService interface {
	List(ctx context.Context, query dto.CourseQuery) ([]models.CourseSummary, *models.Pagination, error)
	Create(ctx context.Context, actor *models.User, req dto.CreateCourseRequest) (*models.Course, error)
	Update(ctx context.Context, actor *models.User, id string, req dto.UpdateCourseRequest) (*models.Course, error)
	Delete(ctx context.Context, actor *models.User, id string) error
}

type progressService interface {
	ComputeProgress(ctx context.Context, userID, courseID string) (*dto.CourseProgress, error)
	Dashboard(ctx context.Context, userID string, feedbackEnabled bool) ([]dto.DashboardItem, error)
}

// CourseHandler serves the catalog and course management endpoints.
type CourseHandler struct {
	courses  courseService
	progress progressService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseService, progress progressService) *CourseHandler {
	return &CourseHandler{courses: courses, progress: progress}
}

// List godoc
// @Summary List published courses
// @Tags Courses
// @Produce json
// @Param search query string false "Title search"
// @Param teacher_id query string false "Teacher filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var query dto.CourseQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	courses, pagination, err := h.courses.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Create godoc
// @Summary Create a course
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateCourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var req dto.CreateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Get godoc
// @Summary Get a course
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	grant, ok := grantFromContext(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, grant.Course, nil)
}

// Update godoc
// @Summary Update a course
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body dto.UpdateCourseRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var req dto.UpdateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete a course
// @Tags Courses
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 204
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	if err := h.courses.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Progress godoc
// @Summary Caller's progress in a course
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/progress [get]
func (h *CourseHandler) Progress(c *gin.Context) {
	grant, ok := grantFromContext(c)
	if !ok {
		return
	}
	progress, err := h.progress.ComputeProgress(c.Request.Context(), grant.User.ID, grant.Course.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}
