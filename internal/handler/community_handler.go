package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/response"
)

type communityService interface {
	ListDiscussions(ctx context.Context, grant *service.AccessGrant, settings service.Settings) ([]models.DiscussionDetail, error)
	PostDiscussion(ctx context.Context, grant *service.AccessGrant, settings service.Settings, req dto.PostDiscussionRequest) (*models.Discussion, error)
	SubmitFeedback(ctx context.Context, grant *service.AccessGrant, settings service.Settings, req dto.SubmitFeedbackRequest) (*models.CourseFeedback, error)
}

// CommunityHandler serves course discussions and feedback.
type CommunityHandler struct {
	community communityService
}

// NewCommunityHandler constructs CommunityHandler.
func NewCommunityHandler(community communityService) *CommunityHandler {
	return &CommunityHandler{community: community}
}

// ListDiscussions godoc
// @Summary List course discussions
// @Tags Community
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id}/discussions [get]
func (h *CommunityHandler) ListDiscussions(c *gin.Context) {
	grant, ok := grantFromContext(c)
	if !ok {
		return
	}
	items, err := h.community.ListDiscussions(c.Request.Context(), grant, middleware.CurrentSettings(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// PostDiscussion godoc
// @Summary Post to a course discussion
// @Tags Community
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body dto.PostDiscussionRequest true "Message"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/discussions [post]
func (h *CommunityHandler) PostDiscussion(c *gin.Context) {
	grant, ok := grantFromContext(c)
	if !ok {
		return
	}
	var req dto.PostDiscussionRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := h.community.PostDiscussion(c.Request.Context(), grant, middleware.CurrentSettings(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

// SubmitFeedback godoc
// @Summary Rate a completed course
// @Tags Community
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body dto.SubmitFeedbackRequest true "Rating"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /courses/{id}/feedback [post]
func (h *CommunityHandler) SubmitFeedback(c *gin.Context) {
	grant, ok := grantFromContext(c)
	if !ok {
		return
	}
	var req dto.SubmitFeedbackRequest
	if !bindJSON(c, &req) {
		return
	}
	feedback, err := h.community.SubmitFeedback(c.Request.Context(), grant, middleware.CurrentSettings(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, feedback)
}
