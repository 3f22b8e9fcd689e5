package models

import "time"

// SettingsID is the primary key of the single settings row.
const SettingsID = "global"

// Default warning thresholds.
const (
	DefaultMonthlyExpiryWarningDays        = 5
	DefaultClassPackExpiryWarningRemaining = 2
)

// Settings are the tenant-wide thresholds read by every status computation.
type Settings struct {
	ID                              string    `db:"id" json:"-"`
	MonthlyExpiryWarningDays        int       `db:"monthly_expiry_warning_days" json:"monthly_expiry_warning_days"`
	ClassPackExpiryWarningRemaining int       `db:"class_pack_expiry_warning_remaining" json:"class_pack_expiry_warning_remaining"`
	UpdatedBy                       *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt                       time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultSettings returns the thresholds used before an admin saves any.
func DefaultSettings() Settings {
	return Settings{
		ID:                              SettingsID,
		MonthlyExpiryWarningDays:        DefaultMonthlyExpiryWarningDays,
		ClassPackExpiryWarningRemaining: DefaultClassPackExpiryWarningRemaining,
	}
}
