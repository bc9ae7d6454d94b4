package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/pkg/scheduler"
)

type cleanerStub struct {
	ttls []time.Duration
}

func (c *cleanerStub) Cleanup(ctx context.Context, ttl time.Duration) ([]string, error) {
	c.ttls = append(c.ttls, ttl)
	return []string{"old.csv"}, nil
}

func TestMaintenanceReportExpiring(t *testing.T) {
	f := newFixture()
	f.enrollments.rows["soon"] = &models.Enrollment{ID: "soon", UserID: f.outsider.ID, CourseID: f.course.ID, ExpiresAt: fixedNow.Add(48 * time.Hour), Active: true}
	f.enrollments.rows["off"] = &models.Enrollment{ID: "off", UserID: "x", CourseID: f.course.ID, ExpiresAt: fixedNow.Add(time.Hour), Active: false}
	svc := NewMaintenanceService(&cleanerStub{}, f.enrollments, zap.NewNop(), MaintenanceConfig{})
	svc.now = fixedClock

	before := *f.enrollments.rows["soon"]
	count, err := svc.ReportExpiring(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, before, *f.enrollments.rows["soon"])
}

func TestMaintenanceCleanupUsesTTL(t *testing.T) {
	cleaner := &cleanerStub{}
	svc := NewMaintenanceService(cleaner, newFakeEnrollments(nil), nil, MaintenanceConfig{ExportTTL: time.Hour})

	require.NoError(t, svc.CleanupExports(context.Background()))
	assert.Equal(t, []time.Duration{time.Hour}, cleaner.ttls)
}

func TestMaintenanceRegister(t *testing.T) {
	sched := scheduler.New(zap.NewNop(), time.Minute)
	svc := NewMaintenanceService(&cleanerStub{}, newFakeEnrollments(nil), nil, MaintenanceConfig{CleanupSchedule: "@hourly", ExpiryReportSchedule: "@daily"})

	require.NoError(t, svc.Register(sched))
	assert.Equal(t, 2, sched.Len())

	bad := NewMaintenanceService(&cleanerStub{}, newFakeEnrollments(nil), nil, MaintenanceConfig{CleanupSchedule: "every blue moon"})
	assert.Error(t, bad.Register(scheduler.New(nil, 0)))
}
