package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

// principal returns the authenticated user or writes a 401 and reports false.
func principal(c *gin.Context) (*models.User, bool) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return nil, false
	}
	return user, true
}

// grantFromContext returns the grant attached by the course or lesson gate.
func grantFromContext(c *gin.Context) (*service.AccessGrant, bool) {
	grant := middleware.Grant(c)
	if grant == nil || grant.User == nil || grant.Course == nil {
		response.Error(c, appErrors.ErrUnauthenticated)
		return nil, false
	}
	return grant, true
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if value, err := strconv.Atoi(c.Query(key)); err == nil {
		return value
	}
	return fallback
}

func enrollmentSummary(e *models.Enrollment) dto.EnrollmentSummary {
	return dto.EnrollmentSummary{
		ID:         e.ID,
		UserID:     e.UserID,
		CourseID:   e.CourseID,
		EnrolledAt: e.EnrolledAt,
		ExpiresAt:  e.ExpiresAt,
		IsActive:   e.Active,
	}
}
