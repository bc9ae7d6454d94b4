package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

type lessonService interface {
	List(ctx context.Context, grant *service.AccessGrant) ([]models.Lesson, error)
	View(ctx context.Context, lesson *models.Lesson) (*service.LessonView, error)
	Create(ctx context.Context, actor *models.User, courseID string, req dto.CreateLessonRequest) (*models.Lesson, error)
	Update(ctx context.Context, actor *models.User, lessonID string, req dto.UpdateLessonRequest) (*models.Lesson, error)
	Delete(ctx context.Context, actor *models.User, lessonID string) error
	AddQuestion(ctx context.Context, actor *models.User, lessonID string, req dto.CreateQuizQuestionRequest) (*models.QuizQuestion, error)
}

// LessonHandler serves lesson endpoints.
type LessonHandler struct {
	lessons lessonService
}

// NewLessonHandler constructs LessonHandler.
func NewLessonHandler(lessons lessonService) *LessonHandler {
	return &LessonHandler{lessons: lessons}
}

// ListForCourse godoc
// @Summary List course lessons
// @Description Students only see lessons they are targeted by
// @Tags Lessons
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/lessons [get]
func (h *LessonHandler) ListForCourse(c *gin.Context) {
	grant, ok := grantFromContext(c)
	if !ok {
		return
	}
	lessons, err := h.lessons.List(c.Request.Context(), grant)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// Create godoc
// @Summary Add a lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body dto.CreateLessonRequest true "Lesson"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/lessons [post]
func (h *LessonHandler) Create(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var req dto.CreateLessonRequest
	if !bindJSON(c, &req) {
		return
	}
	lesson, err := h.lessons.Create(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// Get godoc
// @Summary Get a lesson
// @Tags Lessons
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id} [get]
func (h *LessonHandler) Get(c *gin.Context) {
	lesson := middleware.GatedLesson(c)
	if lesson == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	view, err := h.lessons.View(c.Request.Context(), lesson)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Update godoc
// @Summary Update a lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Param payload body dto.UpdateLessonRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id} [put]
func (h *LessonHandler) Update(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var req dto.UpdateLessonRequest
	if !bindJSON(c, &req) {
		return
	}
	lesson, err := h.lessons.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// Delete godoc
// @Summary Delete a lesson
// @Tags Lessons
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Success 204
// @Router /lessons/{id} [delete]
func (h *LessonHandler) Delete(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	if err := h.lessons.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddQuestion godoc
// @Summary Add a quiz question
// @Tags Lessons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lesson ID"
// @Param payload body dto.CreateQuizQuestionRequest true "Question"
// @Success 201 {object} response.Envelope
// @Router /lessons/{id}/questions [post]
func (h *LessonHandler) AddQuestion(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var req dto.CreateQuizQuestionRequest
	if !bindJSON(c, &req) {
		return
	}
	question, err := h.lessons.AddQuestion(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, question)
}
