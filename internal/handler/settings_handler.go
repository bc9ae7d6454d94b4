package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/response"
)

type settingsService interface {
	Snapshot(ctx context.Context) service.Settings
	Update(ctx context.Context, actor *models.User, req dto.UpdateSettingsRequest) (service.Settings, error)
}

// SettingsHandler exposes the global feature flags.
type SettingsHandler struct {
	service settingsService
}

// NewSettingsHandler constructs SettingsHandler.
func NewSettingsHandler(svc settingsService) *SettingsHandler {
	return &SettingsHandler{service: svc}
}

// Get godoc
// @Summary Read system settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Snapshot(c.Request.Context()).Map(), nil)
}

// Update godoc
// @Summary Update system settings
// @Description Applies a partial flag map; unknown keys are rejected
// @Tags Settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpdateSettingsRequest true "Flags"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /settings [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var req dto.UpdateSettingsRequest
	if !bindJSON(c, &req) {
		return
	}
	next, err := h.service.Update(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, next.Map(), nil)
}
