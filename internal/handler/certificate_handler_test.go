package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type certificateServiceStub struct {
	cert     *models.Certificate
	err      error
	settings service.Settings
}

func (s *certificateServiceStub) Issue(_ context.Context, _ *service.AccessGrant, settings service.Settings) (*models.Certificate, error) {
	s.settings = settings
	return s.cert, s.err
}

func (s *certificateServiceStub) Download(context.Context, *models.User, string) (*service.CertificateDownload, error) {
	return nil, s.err
}

func (s *certificateServiceStub) Verify(_ context.Context, code string) (*dto.CertificateVerification, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.CertificateVerification{Code: code, Valid: true}, nil
}

func withGrant(c *gin.Context, user *models.User) {
	withPrincipal(c, user)
	c.Params = append(c.Params, ginParam("id", "open-course"))
	middleware.CourseGate(routerGate{}, "id")(c)
}

func TestCertificateHandlerIssueAccepted(t *testing.T) {
	h := NewCertificateHandler(&certificateServiceStub{cert: &models.Certificate{ID: "cert-1", Status: models.CertificateStatusPending}})

	c, w := newGinContext(http.MethodPost, "/courses/course-1/certificate", nil)
	withGrant(c, studentUser)
	h.Issue(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestCertificateHandlerIssueReady(t *testing.T) {
	h := NewCertificateHandler(&certificateServiceStub{cert: &models.Certificate{ID: "cert-1", Status: models.CertificateStatusReady}})

	c, w := newGinContext(http.MethodPost, "/courses/course-1/certificate", nil)
	withGrant(c, studentUser)
	h.Issue(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCertificateHandlerIssueWithoutGrant(t *testing.T) {
	h := NewCertificateHandler(&certificateServiceStub{})

	c, w := newGinContext(http.MethodPost, "/courses/course-1/certificate", nil)
	h.Issue(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCertificateHandlerDownloadPending(t *testing.T) {
	h := NewCertificateHandler(&certificateServiceStub{err: appErrors.Clone(appErrors.ErrConflict, "certificate is still rendering")})

	c, w := newGinContext(http.MethodGet, "/certificates/cert-1/download", nil)
	withPrincipal(c, studentUser)
	h.Download(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCertificateHandlerVerifyIsPublic(t *testing.T) {
	h := NewCertificateHandler(&certificateServiceStub{})

	c, w := newGinContext(http.MethodGet, "/verify-certificate/ABC", nil)
	c.Params = append(c.Params, ginParam("code", "ABC"))
	h.Verify(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"code":"ABC"`)
}
