package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

const settingsCacheKey = "settings:snapshot"

type settingsRepository interface {
	List(ctx context.Context) ([]models.SystemSetting, error)
	BulkUpsert(ctx context.Context, settings []models.SystemSetting) error
}

var settingDefaults = map[models.SettingKey]bool{
	models.SettingRegistrationOpen:      true,
	models.SettingMaintenanceMode:       false,
	models.SettingDiscussionsEnabled:    true,
	models.SettingCertificatesEnabled:   true,
	models.SettingCourseFeedbackEnabled: true,
}

// Settings is an immutable view of the global flags.
type Settings struct {
	values map[models.SettingKey]bool
}

// DefaultSettings returns the built-in flag values.
func DefaultSettings() Settings {
	values := make(map[models.SettingKey]bool, len(settingDefaults))
	for key, value := range settingDefaults {
		values[key] = value
	}
	return Settings{values: values}
}

// Enabled reports the value of key, falling back to its default.
func (s Settings) Enabled(key models.SettingKey) bool {
	if value, ok := s.values[key]; ok {
		return value
	}
	return settingDefaults[key]
}

func (s Settings) RegistrationOpen() bool      { return s.Enabled(models.SettingRegistrationOpen) }
func (s Settings) MaintenanceMode() bool       { return s.Enabled(models.SettingMaintenanceMode) }
func (s Settings) DiscussionsEnabled() bool    { return s.Enabled(models.SettingDiscussionsEnabled) }
func (s Settings) CertificatesEnabled() bool   { return s.Enabled(models.SettingCertificatesEnabled) }
func (s Settings) CourseFeedbackEnabled() bool { return s.Enabled(models.SettingCourseFeedbackEnabled) }

// Map renders every known flag.
func (s Settings) Map() dto.Settings {
	out := make(dto.Settings, len(settingDefaults))
	for key := range settingDefaults {
		out[string(key)] = s.Enabled(key)
	}
	return out
}

func (s Settings) with(updates map[models.SettingKey]bool) Settings {
	values := make(map[models.SettingKey]bool, len(settingDefaults))
	for key := range settingDefaults {
		values[key] = s.Enabled(key)
	}
	for key, value := range updates {
		values[key] = value
	}
	return Settings{values: values}
}

// SettingsServiceConfig tunes snapshot refresh.
type SettingsServiceConfig struct {
	CacheTTL time.Duration
}

// SettingsService serves a process-wide snapshot of the global flags.
// The snapshot is refreshed from storage once it is older than CacheTTL and
// replaced immediately by local updates.
type SettingsService struct {
	repo   settingsRepository
	cache  *CacheService
	audit  auditWriter
	logger *zap.Logger
	cfg    SettingsServiceConfig
	now    func() time.Time

	mu       sync.RWMutex
	snapshot Settings
	loadedAt time.Time
	loaded   bool
}

// NewSettingsService constructs SettingsService.
func NewSettingsService(repo settingsRepository, cache *CacheService, audit auditWriter, logger *zap.Logger, cfg SettingsServiceConfig) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	return &SettingsService{
		repo:     repo,
		cache:    cache,
		audit:    audit,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		snapshot: DefaultSettings(),
	}
}

// Snapshot returns the current flags. When storage is unreachable the last
// known snapshot, or the defaults, is served.
func (s *SettingsService) Snapshot(ctx context.Context) Settings {
	s.mu.RLock()
	fresh := s.loaded && s.now().Sub(s.loadedAt) < s.cfg.CacheTTL
	current := s.snapshot
	s.mu.RUnlock()
	if fresh {
		return current
	}

	loaded, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("failed to refresh settings", zap.Error(err))
		return current
	}
	s.store(loaded)
	return loaded
}

// Update applies a partial flag map. Admin only; unknown keys are rejected
// and nothing is written.
func (s *SettingsService) Update(ctx context.Context, actor *models.User, req dto.UpdateSettingsRequest) (Settings, error) {
	if !actor.IsAdmin() {
		return Settings{}, appErrors.ErrUnauthorized
	}
	if len(req) == 0 {
		return Settings{}, appErrors.Clone(appErrors.ErrValidation, "at least one setting is required")
	}

	keys := make([]string, 0, len(req))
	for key := range req {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	now := s.now().UTC()
	updates := make(map[models.SettingKey]bool, len(req))
	rows := make([]models.SystemSetting, 0, len(req))
	for _, key := range keys {
		settingKey := models.SettingKey(key)
		if _, ok := settingDefaults[settingKey]; !ok {
			return Settings{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown setting %s", key))
		}
		updates[settingKey] = req[key]
		rows = append(rows, models.SystemSetting{Key: settingKey, Value: req[key], UpdatedBy: userIDPtr(actor), UpdatedAt: now})
	}

	previous := s.Snapshot(ctx)
	if err := s.repo.BulkUpsert(ctx, rows); err != nil {
		return Settings{}, appErrors.Internal(err, "failed to update settings")
	}

	next := previous.with(updates)
	s.store(next)
	if err := s.cache.Set(ctx, settingsCacheKey, next.Map(), s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to publish settings", zap.Error(err))
	}

	emitAudit(ctx, s.audit, s.logger, "settings-service", &models.AuditLog{
		UserID:    userIDPtr(actor),
		Action:    models.AuditActionSettingsUpdate,
		Resource:  models.AuditResourceSettings,
		OldValues: auditPayload(previous.Map()),
		NewValues: auditPayload(req),
	})
	return next, nil
}

func (s *SettingsService) load(ctx context.Context) (Settings, error) {
	var cached dto.Settings
	if hit, err := s.cache.Get(ctx, settingsCacheKey, &cached); err == nil && hit {
		return SettingsFromMap(cached), nil
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return Settings{}, err
	}
	values := make(map[models.SettingKey]bool, len(rows))
	for _, row := range rows {
		if _, ok := settingDefaults[row.Key]; ok {
			values[row.Key] = row.Value
		}
	}
	loaded := DefaultSettings().with(values)
	if err := s.cache.Set(ctx, settingsCacheKey, loaded.Map(), s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache settings snapshot", zap.Error(err))
	}
	return loaded, nil
}

func (s *SettingsService) store(next Settings) {
	s.mu.Lock()
	s.snapshot = next
	s.loadedAt = s.now()
	s.loaded = true
	s.mu.Unlock()
}

// SettingsFromMap builds a snapshot from a flag map, ignoring unknown keys.
func SettingsFromMap(raw dto.Settings) Settings {
	values := make(map[models.SettingKey]bool, len(raw))
	for key, value := range raw {
		if _, ok := settingDefaults[models.SettingKey(key)]; ok {
			values[models.SettingKey(key)] = value
		}
	}
	return DefaultSettings().with(values)
}
