package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	SetActive(ctx context.Context, id string, active bool) (bool, error)
}

// UserService handles admin user management workflows.
type UserService struct {
	repo      userRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, query dto.UserQuery) ([]models.User, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user filter")
	}
	filter := models.UserFilter{
		Active:    query.Active,
		Search:    query.Search,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	if query.Role != "" {
		role := models.UserRole(query.Role)
		filter.Role = &role
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	pagination := &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}
	return users, pagination, nil
}

// Get returns a single user.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to get user")
	}
	return user, nil
}

// ToggleStatus flips a user's active flag. Admins cannot deactivate themselves.
func (s *UserService) ToggleStatus(ctx context.Context, actor *models.User, id string) (*dto.UserStatus, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.ID == id {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot change your own status")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to load user")
	}
	active, err := s.repo.SetActive(ctx, id, !user.Active)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "failed to update user status")
	}

	emitAudit(ctx, s.audit, s.logger, "user-service", &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     models.AuditActionUserToggleStatus,
		Resource:   models.AuditResourceUser,
		ResourceID: &user.ID,
		OldValues:  auditPayload(map[string]bool{"is_active": user.Active}),
		NewValues:  auditPayload(map[string]bool{"is_active": active}),
	})
	return &dto.UserStatus{ID: id, IsActive: active}, nil
}
