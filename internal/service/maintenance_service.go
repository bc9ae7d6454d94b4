package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/pkg/scheduler"
)

const expiryReportWindow = 7 * 24 * time.Hour

type exportCleaner interface {
	Cleanup(ctx context.Context, ttl time.Duration) ([]string, error)
}

type expiringCounter interface {
	CountExpiringBetween(ctx context.Context, from, to time.Time) (int, error)
}

// MaintenanceConfig holds cron specs for periodic housekeeping.
type MaintenanceConfig struct {
	ExportTTL            time.Duration
	CleanupSchedule      string
	ExpiryReportSchedule string
}

// MaintenanceService runs periodic housekeeping. It never changes enrollments.
type MaintenanceService struct {
	exports     exportCleaner
	enrollments expiringCounter
	logger      *zap.Logger
	cfg         MaintenanceConfig
	now         func() time.Time
}

// NewMaintenanceService constructs MaintenanceService.
func NewMaintenanceService(exports exportCleaner, enrollments expiringCounter, logger *zap.Logger, cfg MaintenanceConfig) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExportTTL <= 0 {
		cfg.ExportTTL = 24 * time.Hour
	}
	return &MaintenanceService{exports: exports, enrollments: enrollments, logger: logger, cfg: cfg, now: time.Now}
}

// Register adds the housekeeping tasks to sched. Empty specs are skipped.
func (s *MaintenanceService) Register(sched *scheduler.Scheduler) error {
	if s.cfg.CleanupSchedule != "" {
		if err := sched.Register("export_cleanup", s.cfg.CleanupSchedule, s.CleanupExports); err != nil {
			return err
		}
	}
	if s.cfg.ExpiryReportSchedule != "" {
		if err := sched.Register("expiry_report", s.cfg.ExpiryReportSchedule, func(ctx context.Context) error {
			_, err := s.ReportExpiring(ctx)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

// CleanupExports deletes export files older than the configured TTL.
func (s *MaintenanceService) CleanupExports(ctx context.Context) error {
	_, err := s.exports.Cleanup(ctx, s.cfg.ExportTTL)
	return err
}

// ReportExpiring logs how many active enrollments close within a week.
func (s *MaintenanceService) ReportExpiring(ctx context.Context) (int, error) {
	from := s.now().UTC()
	count, err := s.enrollments.CountExpiringBetween(ctx, from, from.Add(expiryReportWindow))
	if err != nil {
		return 0, err
	}
	s.logger.Info("enrollments expiring soon", zap.Int("count", count), zap.Time("until", from.Add(expiryReportWindow)))
	return count, nil
}
