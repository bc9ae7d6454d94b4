package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type requestMetaKey struct{}

// RequestMeta identifies the caller of an audited operation.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// WithRequestMeta stores caller metadata for audit entries written further down the stack.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFrom returns the caller metadata stored on ctx, if any.
func RequestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

func requestMetaFrom(ctx context.Context, fallbackAgent string) RequestMeta {
	meta := RequestMetaFrom(ctx)
	if meta.IPAddress == "" {
		meta.IPAddress = "system"
	}
	if meta.UserAgent == "" {
		meta.UserAgent = fallbackAgent
	}
	return meta
}

// emitAudit writes an audit entry. Failures are logged and never surface to the caller.
func emitAudit(ctx context.Context, audit auditWriter, logger *zap.Logger, source string, log *models.AuditLog) {
	if audit == nil || log == nil {
		return
	}
	meta := requestMetaFrom(ctx, source)
	log.IPAddress = meta.IPAddress
	log.UserAgent = meta.UserAgent
	if err := audit.CreateAuditLog(ctx, log); err != nil {
		logger.Warn("failed to record audit", zap.String("action", log.Action), zap.Error(err))
	}
}

func auditPayload(value interface{}) []byte {
	if value == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return raw
}

func userIDPtr(user *models.User) *string {
	if user == nil || user.ID == "" {
		return nil
	}
	id := user.ID
	return &id
}

func strPtr(value string) *string {
	if value == "" {
		return nil
	}
	result := value
	return &result
}

func trimmedPtr(value string) *string {
	return strPtr(strings.TrimSpace(value))
}

func invalid(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// notFoundOr maps sql.ErrNoRows to a 404 and anything else to a 500.
func notFoundOr(err error, notFound, internal string) error {
	if isNoRows(err) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Internal(err, internal)
}
