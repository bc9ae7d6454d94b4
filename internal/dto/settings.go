package dto

// Settings is the global flag map exposed on GET /settings.
type Settings map[string]bool

// UpdateSettingsRequest carries a partial flag map. Unknown keys are rejected.
type UpdateSettingsRequest map[string]bool
