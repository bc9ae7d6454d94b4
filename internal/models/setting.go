package models

import "time"

// SettingKey names a global boolean flag.
type SettingKey string

const (
	SettingRegistrationOpen      SettingKey = "registration_open"
	SettingMaintenanceMode       SettingKey = "maintenance_mode"
	SettingDiscussionsEnabled    SettingKey = "discussions_enabled"
	SettingCertificatesEnabled   SettingKey = "certificates_enabled"
	SettingCourseFeedbackEnabled SettingKey = "course_feedback_enabled"
)

// SystemSetting is a persisted flag row.
type SystemSetting struct {
	Key       SettingKey `db:"key" json:"key"`
	Value     bool       `db:"value" json:"value"`
	UpdatedBy *string    `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
