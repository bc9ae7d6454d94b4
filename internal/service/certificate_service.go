package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/export"
	"github.com/noah-isme/lms-api/pkg/jobs"
)

// JobTypeCertificateRender is the queue job type for certificate PDFs.
const JobTypeCertificateRender = "certificate.render"

type certificateStore interface {
	CreateIfAbsent(ctx context.Context, userID, courseID string, issuedAt time.Time) (*models.Certificate, bool, error)
	FindDetail(ctx context.Context, id string) (*models.CertificateDetail, error)
	FindByCode(ctx context.Context, code string) (*models.CertificateDetail, error)
	ListPending(ctx context.Context, limit int) ([]models.Certificate, error)
	MarkRendered(ctx context.Context, id string, status models.CertificateStatus, filePath *string) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type certificateFiles interface {
	Save(name string, data []byte) (string, error)
	Path(name string) (string, error)
}

type certificateRenderer interface {
	Render(cert export.Certificate) ([]byte, error)
}

// CertificateDownload locates a rendered certificate.
type CertificateDownload struct {
	Path     string
	Filename string
}

// CertificateService issues completion certificates and serves them.
type CertificateService struct {
	repo     certificateStore
	progress completionReader
	queue    jobDispatcher
	files    certificateFiles
	audit    auditWriter
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewCertificateService constructs CertificateService.
func NewCertificateService(repo certificateStore, progress completionReader, queue jobDispatcher, files certificateFiles, audit auditWriter, metrics *MetricsService, logger *zap.Logger) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{repo: repo, progress: progress, queue: queue, files: files, audit: audit, metrics: metrics, logger: logger, now: time.Now}
}

// Issue creates the certificate for a fully completed course. Repeated calls
// return the same certificate; a failed render is queued again.
func (s *CertificateService) Issue(ctx context.Context, grant *AccessGrant, settings Settings) (*models.Certificate, error) {
	if !settings.CertificatesEnabled() {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "certificates are disabled")
	}
	progress, err := s.progress.ComputeProgress(ctx, grant.User.ID, grant.Course.ID)
	if err != nil {
		return nil, err
	}
	if !progress.Completed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "course is not completed")
	}

	cert, created, err := s.repo.CreateIfAbsent(ctx, grant.User.ID, grant.Course.ID, s.now().UTC())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to issue certificate")
	}

	switch {
	case created:
		id := cert.ID
		emitAudit(ctx, s.audit, s.logger, "certificate-service", &models.AuditLog{
			UserID:     userIDPtr(grant.User),
			Action:     models.AuditActionCertificateIssued,
			Resource:   models.AuditResourceCertificate,
			ResourceID: &id,
			NewValues:  auditPayload(map[string]interface{}{"course_id": cert.CourseID, "code": cert.Code}),
		})
		s.enqueue(cert.ID)
	case cert.Status == models.CertificateStatusFailed:
		if err := s.repo.MarkRendered(ctx, cert.ID, models.CertificateStatusPending, nil); err != nil {
			return nil, appErrors.Internal(err, "failed to reset certificate")
		}
		cert.Status = models.CertificateStatusPending
		s.enqueue(cert.ID)
	}
	return cert, nil
}

// Download returns the rendered file for its holder or an admin.
func (s *CertificateService) Download(ctx context.Context, actor *models.User, id string) (*CertificateDownload, error) {
	cert, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "certificate not found", "failed to load certificate")
	}
	if actor == nil || (actor.ID != cert.UserID && !actor.IsAdmin()) {
		return nil, appErrors.ErrUnauthorized
	}
	switch cert.Status {
	case models.CertificateStatusPending:
		return nil, appErrors.Clone(appErrors.ErrConflict, "certificate is still being generated")
	case models.CertificateStatusFailed:
		return nil, appErrors.Clone(appErrors.ErrConflict, "certificate generation failed, request it again")
	}
	if cert.FilePath == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate file not found")
	}
	path, err := s.files.Path(*cert.FilePath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate file not found")
	}
	return &CertificateDownload{Path: path, Filename: "certificate_" + sanitizeFilename(cert.CourseTitle) + ".pdf"}, nil
}

// Verify looks a certificate up by its public code.
func (s *CertificateService) Verify(ctx context.Context, code string) (*dto.CertificateVerification, error) {
	cert, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, notFoundOr(err, "certificate not found", "failed to verify certificate")
	}
	return &dto.CertificateVerification{
		Code:        cert.Code,
		HolderName:  cert.HolderName,
		CourseTitle: cert.CourseTitle,
		IssuedAt:    cert.IssuedAt.UTC().Format(time.RFC3339),
		Valid:       cert.Status == models.CertificateStatusReady,
	}, nil
}

// RecoverPending requeues certificates left pending by a previous process.
func (s *CertificateService) RecoverPending(ctx context.Context) {
	pending, err := s.repo.ListPending(ctx, 100)
	if err != nil {
		s.logger.Warn("failed to list pending certificates", zap.Error(err))
		return
	}
	for _, cert := range pending {
		s.enqueue(cert.ID)
	}
	if len(pending) > 0 {
		s.logger.Info("requeued pending certificates", zap.Int("count", len(pending)))
	}
}

func (s *CertificateService) enqueue(id string) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{ID: id, Type: JobTypeCertificateRender}); err != nil {
		s.logger.Warn("failed to enqueue certificate rendering", zap.String("certificate_id", id), zap.Error(err))
	}
}

// CertificateWorker renders queued certificates to PDF.
type CertificateWorker struct {
	repo       certificateStore
	renderer   certificateRenderer
	files      certificateFiles
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

// NewCertificateWorker constructs a worker.
func NewCertificateWorker(repo certificateStore, renderer certificateRenderer, files certificateFiles, metrics *MetricsService, maxRetries int, logger *zap.Logger) *CertificateWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewCertificateRenderer()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &CertificateWorker{repo: repo, renderer: renderer, files: files, metrics: metrics, logger: logger, maxRetries: maxRetries}
}

// Handle processes a queue job. Errors are returned so the queue retries;
// the final attempt marks the certificate failed.
func (w *CertificateWorker) Handle(ctx context.Context, job jobs.Job) error {
	cert, err := w.repo.FindDetail(ctx, job.ID)
	if err != nil {
		if isNoRows(err) {
			w.logger.Warn("certificate vanished before rendering", zap.String("certificate_id", job.ID))
			return nil
		}
		return err
	}
	if cert.Status == models.CertificateStatusReady {
		return nil
	}

	if err := w.render(ctx, cert); err != nil {
		if job.Attempt >= w.maxRetries {
			if updateErr := w.repo.MarkRendered(ctx, cert.ID, models.CertificateStatusFailed, nil); updateErr != nil {
				w.logger.Warn("failed to mark certificate failed", zap.String("certificate_id", cert.ID), zap.Error(updateErr))
			}
			w.metrics.RecordCertificateJob(string(models.CertificateStatusFailed))
		}
		return err
	}
	w.metrics.RecordCertificateJob(string(models.CertificateStatusReady))
	return nil
}

func (w *CertificateWorker) render(ctx context.Context, cert *models.CertificateDetail) error {
	data, err := w.renderer.Render(export.Certificate{
		HolderName:  cert.HolderName,
		CourseTitle: cert.CourseTitle,
		Code:        cert.Code,
		IssuedAt:    cert.IssuedAt,
	})
	if err != nil {
		return err
	}
	name, err := w.files.Save(cert.ID+".pdf", data)
	if err != nil {
		return err
	}
	return w.repo.MarkRendered(ctx, cert.ID, models.CertificateStatusReady, &name)
}
