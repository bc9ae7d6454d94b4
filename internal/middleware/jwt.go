package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/logger"
	"github.com/noah-isme/lms-api/pkg/response"
)

const (
	// ContextUserKey is the gin context key storing JWT claims.
	ContextUserKey = "currentUser"
	// ContextPrincipalKey stores the freshly loaded *models.User.
	ContextPrincipalKey = "currentPrincipal"
)

// TokenValidator parses bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// PrincipalResolver reloads the user behind a token.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, userID string) (*models.User, error)
}

// JWT protects routes by requiring a valid access token for a user that
// still exists and is active. A principal attached earlier by OptionalJWT is
// reused.
func JWT(tokens TokenValidator, principals PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) != nil {
			c.Next()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthenticated)
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		user, err := principals.ResolvePrincipal(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Set(ContextPrincipalKey, user)
		c.Set(logger.UserIDKey, user.ID)
		c.Next()
	}
}

// OptionalJWT attaches the principal when a usable token is present but
// never blocks.
func OptionalJWT(tokens TokenValidator, principals PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			c.Next()
			return
		}
		user, err := principals.ResolvePrincipal(c.Request.Context(), claims.UserID)
		if err != nil {
			c.Next()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Set(ContextPrincipalKey, user)
		c.Set(logger.UserIDKey, user.ID)
		c.Next()
	}
}

// CurrentUser returns the authenticated principal, or nil.
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get(ContextPrincipalKey)
	if !exists {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
