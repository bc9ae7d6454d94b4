package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type submissionRepository interface {
	CreateQuizSubmission(ctx context.Context, sub *models.Submission) error
	FindAssignment(ctx context.Context, userID, lessonID string) (*models.AssignmentSubmission, error)
	FindAssignmentByID(ctx context.Context, id string) (*models.AssignmentSubmission, error)
	UpsertAssignment(ctx context.Context, sub *models.AssignmentSubmission) (*models.AssignmentSubmission, error)
	GradeAssignment(ctx context.Context, id string, grade int, feedback *string, gradedBy string, gradedAt time.Time) (*models.AssignmentSubmission, error)
}

type questionReader interface {
	ListQuestions(ctx context.Context, lessonID string) ([]models.QuizQuestion, error)
}

type uploadStorage interface {
	SaveStream(name string, r io.Reader) (int64, error)
	Delete(name string) error
	Path(name string) (string, error)
}

type downloadSigner interface {
	Generate(subject, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (string, string, time.Time, error)
}

// SubmissionServiceConfig bounds uploads and shapes download links.
type SubmissionServiceConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	DownloadPrefix   string
}

// AssignmentUpload is a file received from a multipart form.
type AssignmentUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// StoredFile locates a file resolved from a signed token.
type StoredFile struct {
	Path        string
	FileName    string
	ContentType string
}

// SubmissionService handles quiz attempts and assignment hand-ins.
type SubmissionService struct {
	repo      submissionRepository
	questions questionReader
	access    *AccessService
	storage   uploadStorage
	signer    downloadSigner
	gradebook gradebookInvalidator
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SubmissionServiceConfig
	allowed   map[string]struct{}
	now       func() time.Time
}

// NewSubmissionService constructs SubmissionService.
func NewSubmissionService(repo submissionRepository, questions questionReader, access *AccessService, storage uploadStorage, signer downloadSigner, gradebook gradebookInvalidator, audit auditWriter, validate *validator.Validate, logger *zap.Logger, cfg SubmissionServiceConfig) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 10 * 1024 * 1024
	}
	if cfg.DownloadPrefix == "" {
		cfg.DownloadPrefix = "/api/files"
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, m := range cfg.AllowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &SubmissionService{
		repo:      repo,
		questions: questions,
		access:    access,
		storage:   storage,
		signer:    signer,
		gradebook: gradebook,
		audit:     audit,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		allowed:   allowed,
		now:       time.Now,
	}
}

// QuizScore is round(100 * correct / total); a quiz without questions scores 0.
func QuizScore(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) * 100 / float64(total)))
}

// SubmitQuiz grades and stores one attempt. Every attempt is kept.
func (s *SubmissionService) SubmitQuiz(ctx context.Context, user *models.User, lessonID string, req dto.SubmitQuizRequest) (*dto.QuizResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid quiz payload")
	}
	grant, lesson, err := s.access.LessonAccess(ctx, user, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.Type != models.LessonTypeQuiz {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lesson is not a quiz")
	}
	questions, err := s.questions.ListQuestions(ctx, lesson.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load questions")
	}
	if len(questions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "quiz has no questions")
	}

	answers := make(models.IntSlice, len(questions))
	correct := 0
	for i, q := range questions {
		choice, ok := req.Answers[q.ID]
		if !ok {
			answers[i] = -1
			continue
		}
		answers[i] = choice
		if choice == q.CorrectIndex {
			correct++
		}
	}

	sub := &models.Submission{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		LessonID:    lesson.ID,
		Score:       QuizScore(correct, len(questions)),
		Answers:     answers,
		CompletedAt: s.now().UTC(),
	}
	if err := s.repo.CreateQuizSubmission(ctx, sub); err != nil {
		return nil, appErrors.Internal(err, "failed to store quiz attempt")
	}
	s.invalidate(ctx, grant.Course.ID)

	return &dto.QuizResult{
		SubmissionID: sub.ID,
		Score:        sub.Score,
		Correct:      correct,
		Total:        len(questions),
		CompletedAt:  sub.CompletedAt,
	}, nil
}

// SubmitAssignment stores a hand-in. Resubmitting replaces the file and
// clears any previous grade.
func (s *SubmissionService) SubmitAssignment(ctx context.Context, user *models.User, lessonID string, upload AssignmentUpload) (*models.AssignmentSubmission, error) {
	grant, lesson, err := s.access.LessonAccess(ctx, user, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.Type != models.LessonTypeAssignment {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lesson is not an assignment")
	}
	contentType, err := s.checkUpload(upload)
	if err != nil {
		return nil, err
	}

	previous, err := s.repo.FindAssignment(ctx, user.ID, lesson.ID)
	if err != nil && !isNoRows(err) {
		return nil, appErrors.Internal(err, "failed to load submission")
	}

	name := path.Join(lesson.ID, user.ID, uuid.NewString()+strings.ToLower(filepath.Ext(upload.FileName)))
	written, err := s.storage.SaveStream(name, io.LimitReader(upload.Body, s.cfg.MaxFileSizeBytes+1))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to store file")
	}
	if written > s.cfg.MaxFileSizeBytes {
		_ = s.storage.Delete(name)
		return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds maximum size")
	}

	saved, err := s.repo.UpsertAssignment(ctx, &models.AssignmentSubmission{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		LessonID:    lesson.ID,
		FilePath:    name,
		FileName:    filepath.Base(upload.FileName),
		ContentType: contentType,
		SizeBytes:   written,
		SubmittedAt: s.now().UTC(),
	})
	if err != nil {
		_ = s.storage.Delete(name)
		return nil, appErrors.Internal(err, "failed to save submission")
	}
	if previous != nil && previous.FilePath != "" && previous.FilePath != name {
		if err := s.storage.Delete(previous.FilePath); err != nil {
			s.logger.Warn("failed to remove replaced upload", zap.String("path", previous.FilePath), zap.Error(err))
		}
	}
	s.invalidate(ctx, grant.Course.ID)
	return saved, nil
}

// GradeAssignment records a 0-100 grade. Managers only.
func (s *SubmissionService) GradeAssignment(ctx context.Context, actor *models.User, submissionID string, req dto.GradeAssignmentRequest) (*models.AssignmentSubmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid grade payload")
	}
	sub, course, err := s.submissionWithCourse(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if !CanManageCourse(actor, course) {
		return nil, appErrors.ErrUnauthorized
	}

	graded, err := s.repo.GradeAssignment(ctx, sub.ID, *req.Grade, trimmedPtr(req.Feedback), actor.ID, s.now().UTC())
	if err != nil {
		return nil, notFoundOr(err, "submission not found", "failed to grade submission")
	}
	s.invalidate(ctx, course.ID)

	id := sub.ID
	emitAudit(ctx, s.audit, s.logger, "submission-service", &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     models.AuditActionAssignmentGrade,
		Resource:   models.AuditResourceSubmission,
		ResourceID: &id,
		OldValues:  auditPayload(map[string]interface{}{"grade": sub.Grade}),
		NewValues:  auditPayload(map[string]interface{}{"grade": *req.Grade}),
	})
	return graded, nil
}

// DownloadURL issues a signed link for the submission owner or a manager.
func (s *SubmissionService) DownloadURL(ctx context.Context, actor *models.User, submissionID string) (*dto.DownloadLink, error) {
	sub, course, err := s.submissionWithCourse(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if actor == nil || (actor.ID != sub.UserID && !CanManageCourse(actor, course)) {
		return nil, appErrors.ErrUnauthorized
	}
	token, expiresAt, err := s.signer.Generate(sub.ID, sub.FilePath)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign download url")
	}
	return &dto.DownloadLink{
		URL:       strings.TrimRight(s.cfg.DownloadPrefix, "/") + "/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// ResolveFile checks a signed token and returns the file it points at. A
// token for a replaced upload no longer resolves.
func (s *SubmissionService) ResolveFile(ctx context.Context, token string) (*StoredFile, error) {
	subject, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired link")
	}
	sub, err := s.repo.FindAssignmentByID(ctx, subject)
	if err != nil {
		return nil, notFoundOr(err, "file not found", "failed to load submission")
	}
	if sub.FilePath != relPath {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	full, err := s.storage.Path(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	return &StoredFile{Path: full, FileName: sub.FileName, ContentType: sub.ContentType}, nil
}

func (s *SubmissionService) checkUpload(upload AssignmentUpload) (string, error) {
	if upload.Body == nil || strings.TrimSpace(upload.FileName) == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSizeBytes {
		return "", appErrors.Clone(appErrors.ErrValidation, "file exceeds maximum size")
	}
	contentType := strings.ToLower(strings.TrimSpace(upload.ContentType))
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = parsed
	}
	if len(s.allowed) > 0 {
		if _, ok := s.allowed[contentType]; !ok {
			return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %q is not allowed", contentType))
		}
	}
	return contentType, nil
}

func (s *SubmissionService) submissionWithCourse(ctx context.Context, submissionID string) (*models.AssignmentSubmission, *models.Course, error) {
	sub, err := s.repo.FindAssignmentByID(ctx, submissionID)
	if err != nil {
		return nil, nil, notFoundOr(err, "submission not found", "failed to load submission")
	}
	_, course, err := s.access.LessonCourse(ctx, sub.LessonID)
	if err != nil {
		return nil, nil, err
	}
	return sub, course, nil
}

func (s *SubmissionService) invalidate(ctx context.Context, courseID string) {
	if s.gradebook != nil {
		s.gradebook.Invalidate(ctx, courseID)
	}
}
