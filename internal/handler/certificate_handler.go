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

type certificateService interface {
	Issue(ctx context.Context, grant *service.AccessGrant, settings service.Settings) (*models.Certificate, error)
	Download(ctx context.Context, actor *models.User, id string) (*service.CertificateDownload, error)
	Verify(ctx context.Context, code string) (*dto.CertificateVerification, error)
}

// CertificateHandler serves certificate issue, download and verification.
type CertificateHandler struct {
	certificates certificateService
}

// NewCertificateHandler constructs CertificateHandler.
func NewCertificateHandler(certificates certificateService) *CertificateHandler {
	return &CertificateHandler{certificates: certificates}
}

// Issue godoc
// @Summary Request a completion certificate
// @Description Rendering is asynchronous; the certificate starts PENDING
// @Tags Certificates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 202 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /courses/{id}/certificate [post]
func (h *CertificateHandler) Issue(c *gin.Context) {
	grant, ok := grantFromContext(c)
	if !ok {
		return
	}
	cert, err := h.certificates.Issue(c.Request.Context(), grant, middleware.CurrentSettings(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusAccepted
	if cert.Status == models.CertificateStatusReady {
		status = http.StatusOK
	}
	response.JSON(c, status, cert, nil)
}

// Download godoc
// @Summary Download a certificate PDF
// @Tags Certificates
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Certificate ID"
// @Success 200 {file} binary
// @Failure 409 {object} response.Envelope
// @Router /certificates/{id}/download [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	file, err := h.certificates.Download(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Type", "application/pdf")
	c.FileAttachment(file.Path, file.Filename)
}

// Verify godoc
// @Summary Verify a certificate code
// @Tags Certificates
// @Produce json
// @Param code path string true "Certificate code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /verify-certificate/{code} [get]
func (h *CertificateHandler) Verify(c *gin.Context) {
	result, err := h.certificates.Verify(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
