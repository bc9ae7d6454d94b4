package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/storage"
)

type memoryUploads struct {
	files   map[string]string
	deleted []string
}

func (m *memoryUploads) SaveStream(name string, r io.Reader) (int64, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	if m.files == nil {
		m.files = make(map[string]string)
	}
	m.files[name] = string(raw)
	return int64(len(raw)), nil
}

func (m *memoryUploads) Delete(name string) error {
	delete(m.files, name)
	m.deleted = append(m.deleted, name)
	return nil
}

func (m *memoryUploads) Path(name string) (string, error) {
	return "/data/" + name, nil
}

type submissionHarness struct {
	*fixture
	svc     *SubmissionService
	uploads *memoryUploads
	inv     *invalidationRecorder
	audit   *auditRecorder
}

func newSubmissionHarness(t *testing.T) *submissionHarness {
	t.Helper()
	f := newFixture()
	f.lessons.questions["l-quiz"] = []models.QuizQuestion{
		{ID: "q1", LessonID: "l-quiz", Options: models.StringSlice{"a", "b"}, CorrectIndex: 0},
		{ID: "q2", LessonID: "l-quiz", Options: models.StringSlice{"a", "b"}, CorrectIndex: 1},
		{ID: "q3", LessonID: "l-quiz", Options: models.StringSlice{"a", "b"}, CorrectIndex: 1},
	}
	h := &submissionHarness{fixture: f, uploads: &memoryUploads{}, inv: &invalidationRecorder{}, audit: &auditRecorder{}}
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	h.svc = NewSubmissionService(f.submissions, f.lessons, f.access(), h.uploads, signer, h.inv, h.audit, validator.New(), zap.NewNop(), SubmissionServiceConfig{
		MaxFileSizeBytes: 16,
		AllowedMIMEs:     []string{"application/pdf", "text/plain"},
	})
	h.svc.now = fixedClock
	return h
}

func TestQuizScoreRounds(t *testing.T) {
	assert.Equal(t, 67, QuizScore(2, 3))
	assert.Equal(t, 33, QuizScore(1, 3))
	assert.Equal(t, 100, QuizScore(4, 4))
	assert.Equal(t, 0, QuizScore(0, 0))
}

func TestSubmitQuizStoresEveryAttempt(t *testing.T) {
	h := newSubmissionHarness(t)
	ctx := context.Background()

	result, err := h.svc.SubmitQuiz(ctx, h.student, "l-quiz", dto.SubmitQuizRequest{Answers: map[string]int{"q1": 0, "q2": 1, "q3": 0}})
	require.NoError(t, err)
	assert.Equal(t, 67, result.Score)
	assert.Equal(t, 2, result.Correct)
	assert.Equal(t, 3, result.Total)

	result, err = h.svc.SubmitQuiz(ctx, h.student, "l-quiz", dto.SubmitQuizRequest{Answers: map[string]int{"q1": 1}})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)

	require.Len(t, h.submissions.quizzes, 2)
	assert.Equal(t, models.IntSlice{1, -1, -1}, h.submissions.quizzes[1].Answers)
	assert.Equal(t, []string{h.course.ID, h.course.ID}, h.inv.courses)
}

func TestSubmitQuizGated(t *testing.T) {
	h := newSubmissionHarness(t)

	_, err := h.svc.SubmitQuiz(context.Background(), h.outsider, "l-quiz", dto.SubmitQuizRequest{Answers: map[string]int{}})
	assert.ErrorIs(t, err, appErrors.ErrNotEnrolled)

	_, err = h.svc.SubmitQuiz(context.Background(), h.student, "l-video", dto.SubmitQuizRequest{Answers: map[string]int{}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSubmitAssignmentReplacesPreviousFile(t *testing.T) {
	h := newSubmissionHarness(t)
	ctx := context.Background()
	upload := func(body string) AssignmentUpload {
		return AssignmentUpload{FileName: "essay.PDF", ContentType: "application/pdf", Size: int64(len(body)), Body: strings.NewReader(body)}
	}

	first, err := h.svc.SubmitAssignment(ctx, h.student, "l-asg", upload("v1"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(first.FilePath, ".pdf"))

	grade := 80
	_, err = h.svc.GradeAssignment(ctx, h.teacher, first.ID, dto.GradeAssignmentRequest{Grade: &grade})
	require.NoError(t, err)

	second, err := h.svc.SubmitAssignment(ctx, h.student, "l-asg", upload("v2"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Nil(t, second.Grade)
	assert.Equal(t, []string{first.FilePath}, h.uploads.deleted)
	assert.Len(t, h.uploads.files, 1)
}

func TestSubmitAssignmentRejectsBadFiles(t *testing.T) {
	h := newSubmissionHarness(t)
	ctx := context.Background()

	_, err := h.svc.SubmitAssignment(ctx, h.student, "l-asg", AssignmentUpload{FileName: "a.exe", ContentType: "application/x-msdownload", Size: 2, Body: strings.NewReader("MZ")})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	big := strings.Repeat("x", 32)
	_, err = h.svc.SubmitAssignment(ctx, h.student, "l-asg", AssignmentUpload{FileName: "a.txt", ContentType: "text/plain; charset=utf-8", Size: -1, Body: strings.NewReader(big)})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, h.uploads.files)
}

func TestSubmitAssignmentHiddenFromUntargetedStudent(t *testing.T) {
	h := newSubmissionHarness(t)
	h.lessons.lessons["l-asg"].TargetStudents = models.NewStudentSet("someone-else")

	_, err := h.svc.SubmitAssignment(context.Background(), h.student, "l-asg", AssignmentUpload{FileName: "a.txt", ContentType: "text/plain", Body: strings.NewReader("hi")})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestGradeAssignmentRequiresManager(t *testing.T) {
	h := newSubmissionHarness(t)
	ctx := context.Background()
	sub, err := h.svc.SubmitAssignment(ctx, h.student, "l-asg", AssignmentUpload{FileName: "a.txt", ContentType: "text/plain", Body: strings.NewReader("hi")})
	require.NoError(t, err)
	grade := 95

	_, err = h.svc.GradeAssignment(ctx, h.otherTeacher, sub.ID, dto.GradeAssignmentRequest{Grade: &grade})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	tooHigh := 101
	_, err = h.svc.GradeAssignment(ctx, h.teacher, sub.ID, dto.GradeAssignmentRequest{Grade: &tooHigh})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	graded, err := h.svc.GradeAssignment(ctx, h.teacher, sub.ID, dto.GradeAssignmentRequest{Grade: &grade, Feedback: " well done "})
	require.NoError(t, err)
	require.NotNil(t, graded.Grade)
	assert.Equal(t, 95, *graded.Grade)
	assert.Equal(t, "well done", *graded.Feedback)
	require.Len(t, h.audit.logs, 1)
	assert.Equal(t, models.AuditActionAssignmentGrade, h.audit.logs[0].Action)
}

func TestDownloadURLRoundTrip(t *testing.T) {
	h := newSubmissionHarness(t)
	ctx := context.Background()
	sub, err := h.svc.SubmitAssignment(ctx, h.student, "l-asg", AssignmentUpload{FileName: "notes.txt", ContentType: "text/plain", Body: strings.NewReader("hi")})
	require.NoError(t, err)

	_, err = h.svc.DownloadURL(ctx, h.outsider, sub.ID)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	link, err := h.svc.DownloadURL(ctx, h.teacher, sub.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link.URL, "/api/files/"))

	file, err := h.svc.ResolveFile(ctx, strings.TrimPrefix(link.URL, "/api/files/"))
	require.NoError(t, err)
	assert.Equal(t, "/data/"+sub.FilePath, file.Path)
	assert.Equal(t, "notes.txt", file.FileName)

	_, err = h.svc.ResolveFile(ctx, "garbage")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
