package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/pkg/response"
)

// DashboardHandler serves the student dashboard.
type DashboardHandler struct {
	progress progressService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(progress progressService) *DashboardHandler {
	return &DashboardHandler{progress: progress}
}

// Student godoc
// @Summary Student dashboard
// @Description Every enrollment of the caller with progress and expiry state
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /student/dashboard [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	user, ok := principal(c)
	if !ok {
		return
	}
	settings := middleware.CurrentSettings(c)
	items, err := h.progress.Dashboard(c.Request.Context(), user.ID, settings.CourseFeedbackEnabled())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
