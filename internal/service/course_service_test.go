package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

func newCourseServiceForTest(f *fixture) (*CourseService, *invalidationRecorder, *auditRecorder) {
	inv := &invalidationRecorder{}
	audit := &auditRecorder{}
	svc := NewCourseService(f.courses, f.users, inv, audit, validator.New(), zap.NewNop(), CourseServiceConfig{DefaultAccessDays: 90})
	return svc, inv, audit
}

func TestCourseServiceListPublishedOnly(t *testing.T) {
	f := newFixture()
	f.courses.courses["draft"] = &models.Course{ID: "draft", Title: "Draft", TeacherID: f.teacher.ID}
	svc, _, _ := newCourseServiceForTest(f)

	courses, pagination, err := svc.List(context.Background(), dto.CourseQuery{})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, f.course.ID, courses[0].ID)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestCourseServiceCreateByTeacherOwnsCourse(t *testing.T) {
	f := newFixture()
	svc, _, audit := newCourseServiceForTest(f)

	course, err := svc.Create(context.Background(), f.teacher, dto.CreateCourseRequest{Title: "  Rust 101 ", TeacherID: f.otherTeacher.ID})
	require.NoError(t, err)
	assert.Equal(t, "Rust 101", course.Title)
	assert.Equal(t, f.teacher.ID, course.TeacherID)
	assert.Equal(t, 90, course.AccessDays)
	assert.False(t, course.Published)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCourseCreate, audit.logs[0].Action)
}

func TestCourseServiceCreateByAdminAssignsTeacher(t *testing.T) {
	f := newFixture()
	svc, _, _ := newCourseServiceForTest(f)
	days := 14

	course, err := svc.Create(context.Background(), f.admin, dto.CreateCourseRequest{Title: "SQL", TeacherID: f.otherTeacher.ID, AccessDays: &days})
	require.NoError(t, err)
	assert.Equal(t, f.otherTeacher.ID, course.TeacherID)
	assert.Equal(t, 14, course.AccessDays)

	_, err = svc.Create(context.Background(), f.admin, dto.CreateCourseRequest{Title: "SQL", TeacherID: f.student.ID})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCourseServiceCreateRejectsStudents(t *testing.T) {
	f := newFixture()
	svc, _, _ := newCourseServiceForTest(f)

	_, err := svc.Create(context.Background(), f.student, dto.CreateCourseRequest{Title: "Mine"})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestCourseServiceUpdateRequiresManager(t *testing.T) {
	f := newFixture()
	svc, _, _ := newCourseServiceForTest(f)
	title := "Go 102"

	_, err := svc.Update(context.Background(), f.otherTeacher, f.course.ID, dto.UpdateCourseRequest{Title: &title})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	updated, err := svc.Update(context.Background(), f.teacher, f.course.ID, dto.UpdateCourseRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Go 102", updated.Title)
	assert.Equal(t, "Go 102", f.courses.courses[f.course.ID].Title)
}

func TestCourseServiceDeleteInvalidatesGradebook(t *testing.T) {
	f := newFixture()
	svc, inv, audit := newCourseServiceForTest(f)

	require.NoError(t, svc.Delete(context.Background(), f.admin, f.course.ID))
	assert.Equal(t, []string{f.course.ID}, f.courses.deleted)
	assert.Equal(t, []string{f.course.ID}, inv.courses)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCourseDelete, audit.logs[0].Action)

	err := svc.Delete(context.Background(), f.admin, f.course.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
