package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/repository"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail      *models.User
	findByEmailErr   error
	created          *models.User
	createErr        error
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.userByEmail != nil && m.userByEmail.ID == id {
		return m.userByEmail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

type auditRecorder struct {
	logs []*models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newAuthServiceForTest(repo *mockAuthRepo, audit *auditRecorder) *AuthService {
	return NewAuthService(repo, audit, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:   "secret",
		AccessTokenExpiry:   24 * time.Hour,
		RememberTokenExpiry: 30 * 24 * time.Hour,
	})
}

func hashedUser(t *testing.T, active bool) *models.User {
	t.Helper()
	password, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: "123", Email: "user@example.com", PasswordHash: string(password), Active: active, Role: models.RoleStudent}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: hashedUser(t, true)}
	audit := &auditRecorder{}
	svc := newAuthServiceForTest(repo, audit)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64((24 * time.Hour).Seconds()), res.ExpiresIn)
	assert.True(t, repo.lastLoginUpdated)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionLogin, audit.logs[0].Action)
}

func TestAuthServiceLoginRememberMe(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: hashedUser(t, true)}
	svc := newAuthServiceForTest(repo, nil)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password", RememberMe: true})
	require.NoError(t, err)
	assert.Equal(t, int64((30 * 24 * time.Hour).Seconds()), res.ExpiresIn)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: hashedUser(t, false)}
	svc := newAuthServiceForTest(repo, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAccountDeactivated.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.lastLoginUpdated)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: hashedUser(t, true)}
	svc := newAuthServiceForTest(repo, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "nope"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	repo.userByEmail = nil
	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "missing@example.com", Password: "password"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceRegister(t *testing.T) {
	repo := &mockAuthRepo{}
	audit := &auditRecorder{}
	svc := newAuthServiceForTest(repo, audit)

	info, err := svc.Register(context.Background(), models.RegisterRequest{Email: " New@Example.com ", Password: "longenough", FullName: "New Student"}, DefaultSettings())
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, "new@example.com", repo.created.Email)
	assert.Equal(t, models.RoleStudent, repo.created.Role)
	assert.True(t, repo.created.Active)
	assert.False(t, repo.created.Verified)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created.PasswordHash), []byte("longenough")))
	assert.Equal(t, repo.created.ID, info.ID)
	require.Len(t, audit.logs, 1)
}

func TestAuthServiceRegisterClosed(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := newAuthServiceForTest(repo, nil)
	closed := DefaultSettings().with(map[models.SettingKey]bool{models.SettingRegistrationOpen: false})

	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "a@example.com", Password: "longenough", FullName: "A B"}, closed)
	assert.ErrorIs(t, err, appErrors.ErrRegistrationClosed)
	assert.Nil(t, repo.created)
}

func TestAuthServiceRegisterDuplicate(t *testing.T) {
	repo := &mockAuthRepo{createErr: repository.ErrDuplicate}
	svc := newAuthServiceForTest(repo, nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Email: "a@example.com", Password: "longenough", FullName: "A B"}, DefaultSettings())
	require.Error(t, err)
	assert.Equal(t, 409, appErrors.FromError(err).Status)
}

func TestValidateToken(t *testing.T) {
	svc := newAuthServiceForTest(&mockAuthRepo{}, nil)
	user := &models.User{ID: "u1", Email: "user@example.com", Role: models.RoleAdmin}
	token, _, err := svc.generateAccessToken(user, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestValidateTokenRejectsExpiredAndForeignAlgorithms(t *testing.T) {
	svc := newAuthServiceForTest(&mockAuthRepo{}, nil)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }
	token, _, err := svc.generateAccessToken(&models.User{ID: "u1", Role: models.RoleStudent}, time.Hour)
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthenticated.Code, appErrors.FromError(err).Code)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS512, &models.JWTClaims{UserID: "u1"})
	signed, err := foreign.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, appErrors.ErrUnauthenticated)
}
