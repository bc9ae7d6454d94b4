package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

type gradebookService interface {
	Build(ctx context.Context, actor *models.User, courseID string) (*dto.Gradebook, bool, error)
	Export(ctx context.Context, actor *models.User, courseID string, query dto.GradebookExportQuery) (*service.ExportFile, error)
}

// GradebookHandler serves the per-course grade matrix.
type GradebookHandler struct {
	gradebook gradebookService
}

// NewGradebookHandler constructs GradebookHandler.
func NewGradebookHandler(gradebook gradebookService) *GradebookHandler {
	return &GradebookHandler{gradebook: gradebook}
}

// Get godoc
// @Summary Course gradebook
// @Description One row per enrollment and one column per quiz or assignment lesson
// @Tags Gradebook
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id}/gradebook [get]
func (h *GradebookHandler) Get(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	start := time.Now()
	book, cacheHit, err := h.gradebook.Build(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, "generated_ms", time.Since(start).Milliseconds())
	response.JSON(c, http.StatusOK, book, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export the gradebook
// @Tags Gradebook
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /courses/{id}/gradebook/export [get]
func (h *GradebookHandler) Export(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var query dto.GradebookExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	file, err := h.gradebook.Export(c.Request.Context(), actor, c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
