package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/service"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

const contextSettingsKey = "systemSettings"

// SettingsSource yields the current flag snapshot.
type SettingsSource interface {
	Snapshot(ctx context.Context) service.Settings
}

// Settings places the current flag snapshot on the request.
func Settings(source SettingsSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextSettingsKey, source.Snapshot(c.Request.Context()))
		c.Next()
	}
}

// CurrentSettings returns the snapshot attached by Settings, or defaults.
func CurrentSettings(c *gin.Context) service.Settings {
	if value, exists := c.Get(contextSettingsKey); exists {
		if settings, ok := value.(service.Settings); ok {
			return settings
		}
	}
	return service.DefaultSettings()
}

// Maintenance answers 503 while maintenance_mode is on. Admins and paths
// under any exempt prefix pass. It must run after Settings and OptionalJWT.
func Maintenance(exempt ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentSettings(c).MaintenanceMode() || CurrentUser(c).IsAdmin() {
			c.Next()
			return
		}
		path := c.Request.URL.Path
		for _, prefix := range exempt {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}
		response.Error(c, appErrors.ErrMaintenance)
		c.Abort()
	}
}
